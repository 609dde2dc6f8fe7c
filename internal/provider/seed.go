package provider

import "context"

// Seed loads the demo provider directory.
func Seed(ctx context.Context, store Store) error {
	seeds := []struct {
		id, name, address string
		providerType      Type
	}{
		{"prov-denver-health", "Denver Health Medical Center", "777 Bannock St, Denver, CO 80204", TypeHealthcare},
		{"prov-boulder-cmh", "Boulder Community Mental Health", "1333 Iris Ave, Boulder, CO 80304", TypeBehavioralHealth},
		{"prov-aurora-social", "Aurora Social Care Network", "15400 E 14th Pl, Aurora, CO 80011", TypeSocialCare},
		{"prov-uchealth", "UCHealth University of Colorado Hospital", "12605 E 16th Ave, Aurora, CO 80045", TypeHealthcare},
	}

	for _, seed := range seeds {
		p, err := New(seed.id, seed.name, seed.address, seed.providerType)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
