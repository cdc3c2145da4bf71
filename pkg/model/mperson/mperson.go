package mperson

// Person is referenced by role edges, never owned by the referencing entity.
// Username is the stable natural key and is distinct from any owning
// entity's uuid.
type Person struct {
	Username    string
	DisplayName string
}

// Role names a many-to-many edge kind from an owning entity to a Person.
type Role string

const (
	RoleDancer    Role = "dancers"
	RoleWinner    Role = "winners"
	RoleJudge     Role = "judges"
	RoleTeacher   Role = "teachers"
	RoleDJ        Role = "djs"
	RoleOrganizer Role = "organizers"
)

func (r Role) String() string {
	return string(r)
}

// RoleSet pairs a role name with its full member set for wholesale
// replacement on save.
type RoleSet struct {
	Role    Role
	Members []Person
}

// Usernames projects the natural keys of a member set, preserving order.
func Usernames(members []Person) []string {
	if len(members) == 0 {
		return nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.Username)
	}
	return keys
}

// SameSet reports whether two member sets contain the same usernames,
// ignoring order and display names.
func SameSet(a, b []Person) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, p := range a {
		seen[p.Username]++
	}
	for _, p := range b {
		seen[p.Username]--
		if seen[p.Username] < 0 {
			return false
		}
	}
	return true
}
