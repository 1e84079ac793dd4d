package idp

import "slices"

// enrolledAccounts are the accounts whose resources the authority mirrors.
var enrolledAccounts = []string{
	"john.doe@example.com",
	"chuck.norris@example.com",
}

// EnrolledInAuthority reports whether resources owned by email are mirrored
// on the identity provider. Matching is exact.
//
// TODO: replace the fixed account list with an entitlement claim once the
// identity provider exposes one.
func EnrolledInAuthority(email string) bool {
	return slices.Contains(enrolledAccounts, email)
}
