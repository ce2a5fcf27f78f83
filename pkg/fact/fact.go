package fact

import "fmt"

// Fact is an immutable, content-addressed record. It has no identity
// beyond its content: two facts with the same type, fields, and
// predecessors are the same fact.
type Fact struct {
	Type         string
	Fields       map[string]FieldValue
	Predecessors map[string][]Reference
}

// Reference names a fact by its type and the hash of its canonical
// form. It is the only handle other facts use to point at this one.
type Reference struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Hash)
}

// ParseReference parses the "Type:hash" form Reference.String produces.
func ParseReference(s string) (Reference, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return Reference{Type: s[:i], Hash: s[i+1:]}, nil
		}
	}
	return Reference{}, fmt.Errorf("fact: invalid reference %q, want \"Type:hash\"", s)
}

// Envelope pairs a fact with zero or more opaque signatures. The core
// never interprets signature bytes; it only checks presence or
// absence when an authorization rule demands authentication.
type Envelope struct {
	Fact       Fact
	Signatures []Signature
}

// Signature is opaque to the core. Key management and signing are
// external collaborators.
type Signature struct {
	Signer    string
	Signature string
}

// Edge is derived from a fact's predecessors: it names, for a single
// predecessor reference, the successor that named it and the role
// under which it was named. Edges exist solely to make
// successor-direction queries efficient; they carry no information a
// fact's own Predecessors map doesn't already have.
type Edge struct {
	Successor   Reference
	Predecessor Reference
	Role        string
}

// EdgesOf derives the edges implied by a fact's predecessor map. The
// caller supplies the fact's own reference as the successor.
func EdgesOf(successor Reference, f Fact) []Edge {
	var edges []Edge
	for role, preds := range f.Predecessors {
		for _, p := range preds {
			edges = append(edges, Edge{Successor: successor, Predecessor: p, Role: role})
		}
	}
	return edges
}
