package codec

// Type identifies which kind of object a handle refers to
type Type uint8

const (
	TypeDevice Type = iota + 1
	TypeSession
	TypeLink
)

var typeMapping = map[Type]string{
	TypeDevice:  "Device",
	TypeSession: "Session",
	TypeLink:    "Link",
}

func (t Type) String() string {
	str, ok := typeMapping[t]
	if !ok {
		return "Unknown"
	}
	return str
}

// IsValid returns true for TypeDevice, TypeSession, and TypeLink
func (t Type) IsValid() bool {
	return t >= TypeDevice && t <= TypeLink
}

// State is the occupancy state of a slot
type State uint8

const (
	StateFree State = iota
	StateActive
)

var stateMapping = map[State]string{
	StateFree:   "Free",
	StateActive: "Active",
}

func (s State) String() string {
	return stateMapping[s]
}
