package entities

import "testing"

func TestRelation_Validate(t *testing.T) {
	tests := []struct {
		name     string
		relation *Relation
		wantErr  bool
	}{
		{
			name:     "valid relation",
			relation: &Relation{FromID: "blog1", Relation: "topics", ToID: "topic1"},
			wantErr:  false,
		},
		{
			name:     "missing from ID",
			relation: &Relation{Relation: "topics", ToID: "topic1"},
			wantErr:  true,
		},
		{
			name:     "missing relation name",
			relation: &Relation{FromID: "blog1", ToID: "topic1"},
			wantErr:  true,
		},
		{
			name:     "missing to ID",
			relation: &Relation{FromID: "blog1", Relation: "topics"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.relation.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRelation_Key(t *testing.T) {
	r := &Relation{FromID: "alice", Relation: "wrote", ToID: "post1"}
	want := "alice#wrote#post1"
	if got := r.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestRelation_String(t *testing.T) {
	r := &Relation{FromID: "alice", Relation: "wrote", ToID: "post1"}
	want := "alice --wrote--> post1"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
