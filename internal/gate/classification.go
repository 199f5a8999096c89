package gate

// Classification is one of Authenticated, Guest or Unauthorized.
type Classification interface {
	String() string
	isClassification()
}

// Authenticated is a visitor with a known identity.
type Authenticated struct {
	Handle string
}

// Guest is a visitor without identity who chose to continue as guest.
type Guest struct{}

// Unauthorized is a visitor with neither identity nor guest marker.
type Unauthorized struct{}

func (Authenticated) String() string { return "authenticated" }
func (Guest) String() string         { return "guest" }
func (Unauthorized) String() string  { return "unauthorized" }

func (Authenticated) isClassification() {}
func (Guest) isClassification()         {}
func (Unauthorized) isClassification()  {}

// Classify maps an identity and the guest flag to a classification.
// An identity always wins over the guest flag.
func Classify(id *Identity, guestFlag bool) Classification {
	switch {
	case id != nil:
		return Authenticated{Handle: id.Handle}
	case guestFlag:
		return Guest{}
	default:
		return Unauthorized{}
	}
}
