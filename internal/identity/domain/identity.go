package domain

// Identity is the signed-in account as asserted by the hosted auth service.
type Identity struct {
	AccountID   string
	Email       string
	DisplayName string
}

// ShortID returns the first 8 characters of the account id (the whole id when shorter).
func (i *Identity) ShortID() string {
	if i == nil {
		return ""
	}
	if len(i.AccountID) <= 8 {
		return i.AccountID
	}
	return i.AccountID[:8]
}
