package pricing

import (
	"testing"

	"cargoflow/internal/types"
)

func TestService_Estimate(t *testing.T) {
	tests := []struct {
		name          string
		vehicleTypeID types.ID
		meters        float64
		wantCents     int64
		wantErr       error
	}{
		{
			// base 10 + 2km * 0.5 = 11.00
			name:          "van two km",
			vehicleTypeID: 1,
			meters:        2000,
			wantCents:     1100,
		},
		{
			name:          "van zero distance is base fare",
			vehicleTypeID: 1,
			meters:        0,
			wantCents:     1000,
		},
		{
			// 15 + 12.345km * 0.7 = 23.6415 -> 23.64
			name:          "tempo fractional km rounds to cent",
			vehicleTypeID: 2,
			meters:        12345,
			wantCents:     2364,
		},
		{
			// 20 + 100km * 0.9 = 110.00
			name:          "truck long haul",
			vehicleTypeID: 3,
			meters:        100000,
			wantCents:     11000,
		},
		{
			name:          "unknown tariff",
			vehicleTypeID: 99,
			meters:        1000,
			wantErr:       ErrUnknownVehicleType,
		},
	}

	svc := NewService(NewStore(DefaultTariffs()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Estimate(tt.vehicleTypeID, tt.meters)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("Estimate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if got.Cents != tt.wantCents {
				t.Errorf("Estimate() = %d cents, want %d", got.Cents, tt.wantCents)
			}
		})
	}
}

func TestStore_ListIsACopy(t *testing.T) {
	store := NewStore(DefaultTariffs())
	list := store.List()
	list[0].Name = "mutated"

	again := store.List()
	if again[0].Name != "Van" {
		t.Fatalf("expected tariff table to be immutable, got %q", again[0].Name)
	}
}

func TestMoneyJSON(t *testing.T) {
	m := types.Money{Cents: 1100, Currency: "USD"}
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "11.00" {
		t.Errorf("MarshalJSON() = %s, want 11.00", b)
	}
}
