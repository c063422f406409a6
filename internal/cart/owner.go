package cart

// Owner is the user identifier whose cart is shown.
type Owner struct {
	UserID int64 `json:"userId" yaml:"userId"`
	Guest  bool  `json:"guest"  yaml:"guest"`
}

type OwnerResolver interface {
	ResolveOwner() (Owner, error)
}

type OwnerFunc func() (Owner, error)

func (f OwnerFunc) ResolveOwner() (Owner, error) { return f() }

// Identity is the part of the session the resolver reads.
type Identity interface {
	CurrentUserID() (int64, bool)
}

// SessionOwner resolves to the authenticated user, then to the configured
// guest account. With neither it fails with ErrNoOwner.
type SessionOwner struct {
	Session Identity
	GuestID int64
}

func (o SessionOwner) ResolveOwner() (Owner, error) {
	if o.Session != nil {
		if id, ok := o.Session.CurrentUserID(); ok {
			return Owner{UserID: id}, nil
		}
	}
	if o.GuestID > 0 {
		return Owner{UserID: o.GuestID, Guest: true}, nil
	}
	return Owner{}, ErrNoOwner
}
