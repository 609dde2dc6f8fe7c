package roster

import (
	"context"
	"time"
)

// Seed loads the synthetic demo roster. These are clearly fake persons
// for demonstration; IsSynthetic marks them so the lookup endpoint can
// surface the flag.
func Seed(ctx context.Context, store Store) error {
	now := time.Now().UTC()
	persons := []Person{
		{
			MedicaidID:  "CO-DEMO-001",
			FirstName:   "Alice",
			LastName:    "Anderson",
			SSNLast4:    "1234",
			DateOfBirth: "1985-03-15",
			Address:     Address{Street: "123 Demo Street", City: "Denver", State: "CO", Zip: "80202"},
			Email:       "alice.demo@test.local",
			Phone:       "+1-555-0001",
		},
		{
			MedicaidID:  "CO-DEMO-002",
			FirstName:   "Bob",
			LastName:    "Builder",
			SSNLast4:    "5678",
			DateOfBirth: "1990-07-22",
			Address:     Address{Street: "456 Test Avenue", City: "Aurora", State: "CO", Zip: "80012"},
			Email:       "bob.demo@test.local",
			Phone:       "+1-555-0002",
		},
		{
			MedicaidID:  "CO-DEMO-003",
			FirstName:   "Carol",
			LastName:    "Chen",
			SSNLast4:    "9012",
			DateOfBirth: "1978-11-30",
			Address:     Address{Street: "789 Sample Lane", City: "Boulder", State: "CO", Zip: "80301"},
			Email:       "carol.demo@test.local",
			Phone:       "+1-555-0003",
		},
	}

	for _, p := range persons {
		p.Active = true
		p.IsSynthetic = true
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := store.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
