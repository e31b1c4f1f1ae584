package outlet

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
)

type Record struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Address  string   `json:"address"`
	Services []string `json:"services"`
	Hours    string   `json:"hours"`
}

// Querier is the read side of an outlet store. Implementations must call
// Filter.Validate before touching their data.
type Querier interface {
	Query(ctx context.Context, f Filter) ([]Record, error)
}

type Store interface {
	Querier
	Ping(ctx context.Context) error
	Close() error
}

type outletRow struct {
	bun.BaseModel `bun:"table:outlets"`

	ID       int64  `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	Location string `bun:"location,notnull"`
	Address  string `bun:"address,notnull"`
	Services string `bun:"services,notnull"`
	Hours    string `bun:"hours,notnull"`
}

func (r outletRow) record() Record {
	var services []string
	for _, s := range strings.Split(r.Services, ",") {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	return Record{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Address:  r.Address,
		Services: services,
		Hours:    r.Hours,
	}
}

func rowFromRecord(r Record) outletRow {
	return outletRow{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Address:  r.Address,
		Services: strings.Join(r.Services, ", "),
		Hours:    r.Hours,
	}
}

// SeedRecords is the reference outlet set loaded into an empty store.
func SeedRecords() []Record {
	return []Record{
		{
			ID: 1, Name: "SS 2", Location: "Petaling Jaya",
			Address:  "123 Jalan SS 2/45, 47300 Petaling Jaya",
			Services: []string{"Dine-in", "Takeaway", "WiFi"},
			Hours:    "09:00 - 22:00",
		},
		{
			ID: 2, Name: "Klang Main", Location: "Klang",
			Address:  "456 Jalan Sultan Sulaiman, 41000 Klang",
			Services: []string{"Dine-in", "Takeaway", "Drive-through"},
			Hours:    "08:00 - 23:00",
		},
		{
			ID: 3, Name: "Shah Alam Central", Location: "Shah Alam",
			Address:  "789 Persiaran Sultan Salahuddin, 40000 Shah Alam",
			Services: []string{"Dine-in", "Takeaway"},
			Hours:    "10:00 - 21:00",
		},
		{
			ID: 4, Name: "Pavilion KL", Location: "Kuala Lumpur",
			Address:  "168 Jalan Bukit Bintang, 55100 Kuala Lumpur",
			Services: []string{"Dine-in", "Takeaway", "WiFi"},
			Hours:    "10:00 - 22:00",
		},
		{
			ID: 5, Name: "IOI Mall", Location: "Putrajaya",
			Address:  "Lot 1-A-1A, Level 1, IOI City Mall, 62502 Putrajaya",
			Services: []string{"Dine-in", "Takeaway"},
			Hours:    "11:00 - 21:00",
		},
	}
}
