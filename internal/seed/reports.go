package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"oceanwatch/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportCreator is satisfied by the ingestion service so seeded reports go
// through the same validation as real submissions.
type ReportCreator interface {
	CreateReport(ctx context.Context, payload types.ReportPayload, att *types.Attachment) (*types.IncidentReport, error)
}

type seedLocation struct {
	Description string
	Lat, Lng    float64
}

var seedLocations = []seedLocation{
	{"Marina Beach, Chennai", 13.0500, 80.2824},
	{"Juhu Beach, Mumbai", 19.0988, 72.8267},
	{"Kovalam, Thiruvananthapuram", 8.4004, 76.9787},
	{"Puri Beach, Odisha", 19.7983, 85.8249},
	{"Digha, West Bengal", 21.6266, 87.5074},
	{"Rushikonda, Visakhapatnam", 17.7826, 83.3853},
	{"Calangute, Goa", 15.5439, 73.7553},
	{"Dhanushkodi, Rameswaram", 9.1528, 79.4450},
}

var seedDescriptions = map[types.HazardType][]string{
	types.HazardTsunami:        {"Sudden recession of water followed by a large incoming wave."},
	types.HazardStormSurge:     {"Sea water flooding the beach road during the cyclone."},
	types.HazardHighWaves:      {"Waves breaking over the sea wall, fishing boats pulled ashore.", "Unusually high swell since early morning."},
	types.HazardRipCurrent:     {"Strong current pulling swimmers away from the shore near the lifeguard tower."},
	types.HazardAlgalBloom:     {"Red-brown discoloration of the water with dead fish along the tide line."},
	types.HazardOilSpill:       {"Black tar balls and an oily sheen along a 200m stretch."},
	types.HazardMarineDebris:   {"Large amount of plastic nets and debris washed up after the storm."},
	types.HazardCoastalErosion: {"Beach front has receded several metres, exposing foundations."},
	types.HazardOther:          {"Strong smell of gas near the fishing harbour."},
}

type weightedSeverity struct {
	Severity types.Severity
	Weight   int
}

var weightedSeverities = []weightedSeverity{
	{Severity: types.SeverityLow, Weight: 30},
	{Severity: types.SeverityMedium, Weight: 40},
	{Severity: types.SeverityHigh, Weight: 22},
	{Severity: types.SeverityEmergency, Weight: 8},
}

// SeedFakeReports creates count demo reports. Seeded descriptions carry a
// "[seed] " prefix so reset can remove them without touching real reports.
func SeedFakeReports(
	ctx context.Context,
	pool *pgxpool.Pool,
	creator ReportCreator,
	count int,
	reset bool,
) error {
	if reset {
		result, err := pool.Exec(ctx, `DELETE FROM oceanwatch.incident_reports WHERE description LIKE '[seed] %'`)
		if err != nil {
			return fmt.Errorf("failed to reset seeded reports: %w", err)
		}
		fmt.Printf("Reset seeded reports: %d deleted\n", result.RowsAffected())
	}

	if count <= 0 {
		fmt.Println("Skipping fake reports seed because count <= 0")
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	for i := 0; i < count; i++ {
		payload := fakeReportPayload(rng, time.Now())

		if _, err := creator.CreateReport(ctx, payload, nil); err != nil {
			return fmt.Errorf("failed to create seeded report %d: %w", i+1, err)
		}
		created++
	}

	fmt.Printf("Seeded fake reports: %d created\n", created)

	return nil
}

func fakeReportPayload(rng *rand.Rand, now time.Time) types.ReportPayload {
	hazard := types.AllHazardTypes[rng.Intn(len(types.AllHazardTypes))]
	descriptions := seedDescriptions[hazard]
	location := seedLocations[rng.Intn(len(seedLocations))]

	// Jitter within roughly a kilometre of the landmark
	lat := location.Lat + (rng.Float64()-0.5)*0.02
	lng := location.Lng + (rng.Float64()-0.5)*0.02
	observed := now.Add(-time.Duration(rng.Intn(72*60)) * time.Minute).UTC()

	return types.ReportPayload{
		HazardType:          string(hazard),
		Severity:            string(pickWeightedSeverity(rng)),
		Description:         "[seed] " + descriptions[rng.Intn(len(descriptions))],
		LocationDescription: location.Description,
		Latitude:            strconv.FormatFloat(lat, 'f', 6, 64),
		Longitude:           strconv.FormatFloat(lng, 'f', 6, 64),
		TimeOfObservation:   observed.Format(time.RFC3339),
		DeviceInfo:          `{"userAgent":"oceanwatch-seed","language":"en"}`,
	}
}

func pickWeightedSeverity(rng *rand.Rand) types.Severity {
	total := 0
	for _, w := range weightedSeverities {
		total += w.Weight
	}

	n := rng.Intn(total)
	for _, w := range weightedSeverities {
		if n < w.Weight {
			return w.Severity
		}
		n -= w.Weight
	}

	return types.SeverityLow
}
