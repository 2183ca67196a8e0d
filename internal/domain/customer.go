package domain

// Customer carries the identity data the billing provider needs. Rows are
// supplied by the identity collaborator; this service only reads them.
type Customer struct {
	ID               string
	FullName         string
	Email            string
	IdentityDocument string
}
