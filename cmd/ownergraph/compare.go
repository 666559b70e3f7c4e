package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/propfolio/ownergraph/internal/config"
	"github.com/propfolio/ownergraph/internal/database"
	"github.com/propfolio/ownergraph/internal/model"
)

// Constants for portfolio change direction.
const (
	changeDirectionGrew      = "grew"
	changeDirectionShrank    = "shrank"
	changeDirectionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares build results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [bbl]",
		Short: "Compare portfolio builds with historical data",
		Long: `Compare displays differences between the current and a previous build.

This command retrieves historical build data from the database and shows:
- Properties that appeared in or left the portfolio
- Owners (people and entities) that appeared or left
- Changes in portfolio size and total assessed value

The comparison requires at least two builds in the database for the
specified parcel. Use 'ownergraph build' to run builds and save results.

Examples:
  # Compare the latest two builds for a parcel
  ownergraph compare 1-868-1

  # List all build history for a parcel
  ownergraph compare --list 1-868-1

  # Compare with a specific historical build by ID
  ownergraph compare --with-build-id 5 1-868-1

  # Compare with the first build since a specific date
  ownergraph compare --since "2026-01-01" 1-868-1

  # Output comparison in JSON format
  ownergraph compare --json 1-868-1

  # List all parcels with stored builds
  ownergraph compare --list-seeds`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List build history for the specified parcel")
	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all parcels with stored builds in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-build-id", "i", 0,
		"Compare with a specific build by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first build after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-seeds flag first (requires database but no parcel)
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so a bad BBL does
	// not hold the database lock.
	var seedKey string
	if !listSeeds {
		if len(args) == 0 {
			return errors.New("seed parcel is required (use --list-seeds to see stored parcels)")
		}

		bbl, err := model.ParseBBL(args[0])
		if err != nil {
			return fmt.Errorf("invalid seed parcel: %w", err)
		}
		seedKey = bbl.Key()
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listSeeds {
		return listStoredSeeds(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listBuildHistory(ctx, db, seedKey)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	withBuildID, err := cmd.Flags().GetInt64("with-build-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, seedKey, withBuildID, sinceDate, jsonOutput)
}

// listStoredSeeds lists all parcels that have build records in the database.
func listStoredSeeds(ctx context.Context, db *database.PortfolioDB) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if len(seeds) == 0 {
		fmt.Println("No stored builds found in the database.")
		fmt.Println("\nUse 'ownergraph build <bbl>' to build a portfolio.")
		return nil
	}

	fmt.Printf("Stored parcels (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Printf("  • %s\n", seed)
	}
	fmt.Println("\nUse 'ownergraph compare --list <bbl>' to see build history for a parcel.")

	return nil
}

// listBuildHistory lists all build records for a specific parcel.
func listBuildHistory(ctx context.Context, db *database.PortfolioDB, seedKey string) error {
	builds, err := db.GetHistoryWithMetadata(ctx, seedKey)
	if err != nil {
		return fmt.Errorf("failed to get build history: %w", err)
	}

	if len(builds) == 0 {
		fmt.Printf("No build history found for %s\n", seedKey)
		fmt.Println("\nUse 'ownergraph build' to build this portfolio.")
		return nil
	}

	fmt.Printf("Build history for %s (%d builds):\n\n", seedKey, len(builds))
	fmt.Printf("  %-6s  %-20s  %-6s  %s\n", "ID", "Date", "Depth", "Portfolio")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range builds {
		fmt.Printf("  %-6d  %-20s  %-6d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.MaxDepth,
			formatBuildSummary(meta.Summary),
		)
	}

	fmt.Println("\nUse 'ownergraph compare <bbl>' to compare the latest two builds.")
	fmt.Println("Use 'ownergraph compare --with-build-id <id> <bbl>' to compare with a specific build.")

	return nil
}

// formatBuildSummary formats the stored summary counts into a short string.
func formatBuildSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	return fmt.Sprintf("%d properties, %d owners, %d shared addresses",
		summary["properties"], summary["owners"], summary["common_addresses"])
}

// runComparison performs the actual comparison between build reports.
func runComparison(ctx context.Context, db *database.PortfolioDB, seedKey string, withBuildID int64, sinceDate string, jsonOutput bool) error {
	reports, err := db.GetHistory(ctx, seedKey)
	if err != nil {
		return fmt.Errorf("failed to get build history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no build history found for %s", seedKey)
	}

	if len(reports) < 2 && withBuildID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 builds are required for comparison (found %d)", len(reports))
	}

	// Latest report is always the current one
	currentReport := reports[0]

	var previousReport *model.PortfolioReport

	switch {
	case withBuildID > 0:
		previousReport, err = db.GetReportByID(ctx, withBuildID)
		if err != nil {
			return fmt.Errorf("failed to get build with ID %d: %w", withBuildID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("build with ID %d not found", withBuildID)
		}
		if previousReport.Seed != seedKey {
			return fmt.Errorf("build ID %d belongs to %s, not %s", withBuildID, previousReport.Seed, seedKey)
		}

	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted newest first, so iterate in reverse to find
		// the oldest build at or after the date.
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateBuilt.After(parsedDate) || r.DateBuilt.Equal(parsedDate) {
				previousReport = r
				break
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no builds found since %s", sinceDate)
		}
		if previousReport == currentReport {
			return fmt.Errorf("only one build found since %s; at least 2 builds are required for comparison", sinceDate)
		}

	default:
		previousReport = reports[1]
	}

	comparison := compareReports(previousReport, currentReport)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two build reports.
type ComparisonResult struct {
	// Seed is the parcel both builds started from.
	Seed string `json:"seed"`

	// PreviousBuild contains metadata about the previous build.
	PreviousBuild BuildSnapshot `json:"previous_build"`

	// CurrentBuild contains metadata about the current build.
	CurrentBuild BuildSnapshot `json:"current_build"`

	// NewProperties are properties in the current portfolio but not the previous.
	NewProperties []model.PropertySummary `json:"new_properties,omitempty"`

	// LostProperties are properties in the previous portfolio but not the current.
	LostProperties []model.PropertySummary `json:"lost_properties,omitempty"`

	// NewOwners are people and entities that appeared in the current build.
	NewOwners []string `json:"new_owners,omitempty"`

	// LostOwners are people and entities no longer present in the current build.
	LostOwners []string `json:"lost_owners,omitempty"`

	// UnchangedProperties is the number of properties present in both builds.
	UnchangedProperties int `json:"unchanged_properties"`

	// Change describes the overall portfolio movement.
	Change PortfolioChange `json:"change"`
}

// BuildSnapshot contains metadata about a build for comparison display.
type BuildSnapshot struct {
	// DateBuilt is when the build was performed.
	DateBuilt time.Time `json:"date_built"`

	// PropertyCount is the number of properties in the portfolio.
	PropertyCount int `json:"property_count"`

	// OwnerCount is the combined count of people and entities.
	OwnerCount int `json:"owner_count"`

	// AddressCount is the number of shared addresses.
	AddressCount int `json:"address_count"`

	// TotalAssessedValue sums the assessed values of all properties.
	TotalAssessedValue float64 `json:"total_assessed_value"`

	// TimedOut is true if the build's crawl hit its deadline.
	TimedOut bool `json:"timed_out,omitempty"`
}

// PortfolioChange describes the movement between two builds.
type PortfolioChange struct {
	// Direction is "grew", "shrank", or "unchanged", by property count.
	Direction string `json:"direction"`

	// PropertyDelta is the change in property count.
	PropertyDelta int `json:"property_delta"`

	// OwnerDelta is the change in combined owner count.
	OwnerDelta int `json:"owner_delta"`

	// AddressDelta is the change in shared-address count.
	AddressDelta int `json:"address_delta"`

	// ValueDelta is the change in total assessed value.
	ValueDelta float64 `json:"value_delta"`
}

// compareReports compares two build reports and generates a comparison result.
func compareReports(previous, current *model.PortfolioReport) *ComparisonResult {
	result := &ComparisonResult{
		Seed:          current.Seed,
		PreviousBuild: snapshotOf(previous),
		CurrentBuild:  snapshotOf(current),
	}

	previousProperties := propertyMap(previous)
	currentProperties := propertyMap(current)

	for bbl, p := range currentProperties {
		if _, exists := previousProperties[bbl]; !exists {
			result.NewProperties = append(result.NewProperties, p)
		}
	}
	for bbl, p := range previousProperties {
		if _, exists := currentProperties[bbl]; !exists {
			result.LostProperties = append(result.LostProperties, p)
		} else {
			result.UnchangedProperties++
		}
	}

	previousOwners := ownerSet(previous)
	currentOwners := ownerSet(current)

	for name := range currentOwners {
		if !previousOwners[name] {
			result.NewOwners = append(result.NewOwners, name)
		}
	}
	for name := range previousOwners {
		if !currentOwners[name] {
			result.LostOwners = append(result.LostOwners, name)
		}
	}

	result.Change = calculateChange(result.PreviousBuild, result.CurrentBuild)

	return result
}

// snapshotOf extracts comparison metadata from a build report.
func snapshotOf(rep *model.PortfolioReport) BuildSnapshot {
	snap := BuildSnapshot{
		DateBuilt: rep.DateBuilt,
		TimedOut:  rep.TimedOut,
	}
	if rep.Result == nil {
		return snap
	}

	snap.PropertyCount = len(rep.Result.Properties)
	snap.OwnerCount = len(rep.Result.People) + len(rep.Result.Entities)
	snap.AddressCount = len(rep.Result.CommonAddresses)
	for _, p := range rep.Result.Properties {
		snap.TotalAssessedValue += p.AssessedValue
	}
	return snap
}

// propertyMap indexes a report's properties by BBL.
func propertyMap(rep *model.PortfolioReport) map[string]model.PropertySummary {
	m := make(map[string]model.PropertySummary)
	if rep.Result == nil {
		return m
	}
	for _, p := range rep.Result.Properties {
		m[p.BBL] = p
	}
	return m
}

// ownerSet collects a report's people and entity names.
func ownerSet(rep *model.PortfolioReport) map[string]bool {
	set := make(map[string]bool)
	if rep.Result == nil {
		return set
	}
	for _, o := range rep.Result.People {
		set[o.Name] = true
	}
	for _, o := range rep.Result.Entities {
		set[o.Name] = true
	}
	return set
}

// calculateChange calculates the portfolio movement between two builds.
func calculateChange(previous, current BuildSnapshot) PortfolioChange {
	change := PortfolioChange{
		PropertyDelta: current.PropertyCount - previous.PropertyCount,
		OwnerDelta:    current.OwnerCount - previous.OwnerCount,
		AddressDelta:  current.AddressCount - previous.AddressCount,
		ValueDelta:    current.TotalAssessedValue - previous.TotalAssessedValue,
	}

	switch {
	case change.PropertyDelta > 0:
		change.Direction = changeDirectionGrew
	case change.PropertyDelta < 0:
		change.Direction = changeDirectionShrank
	default:
		change.Direction = changeDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Build Comparison: %s\n", result.Seed)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nPortfolio: %s\n", formatChangeDirection(result.Change))

	fmt.Printf("\nPrevious build: %s", result.PreviousBuild.DateBuilt.Format("2006-01-02 15:04:05"))
	if result.PreviousBuild.TimedOut {
		fmt.Print("  (timed out, partial)")
	}
	fmt.Printf("\nCurrent build:  %s", result.CurrentBuild.DateBuilt.Format("2006-01-02 15:04:05"))
	if result.CurrentBuild.TimedOut {
		fmt.Print("  (timed out, partial)")
	}
	fmt.Println()

	fmt.Println("\nPortfolio Summary:")
	fmt.Printf("  %-18s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 54))
	fmt.Printf("  %-18s  %-10d  %-10d  %-10s\n", "Properties",
		result.PreviousBuild.PropertyCount, result.CurrentBuild.PropertyCount,
		formatDelta(result.Change.PropertyDelta))
	fmt.Printf("  %-18s  %-10d  %-10d  %-10s\n", "Owners",
		result.PreviousBuild.OwnerCount, result.CurrentBuild.OwnerCount,
		formatDelta(result.Change.OwnerDelta))
	fmt.Printf("  %-18s  %-10d  %-10d  %-10s\n", "Shared addresses",
		result.PreviousBuild.AddressCount, result.CurrentBuild.AddressCount,
		formatDelta(result.Change.AddressDelta))
	fmt.Printf("  %-18s  $%-9.0f  $%-9.0f  %s\n", "Assessed value",
		result.PreviousBuild.TotalAssessedValue, result.CurrentBuild.TotalAssessedValue,
		formatValueDelta(result.Change.ValueDelta))

	if len(result.NewProperties) > 0 {
		fmt.Printf("\nNew Properties (%d):\n", len(result.NewProperties))
		for _, p := range result.NewProperties {
			fmt.Printf("  [+] %s  %s\n", p.BBL, p.Address)
		}
	}

	if len(result.LostProperties) > 0 {
		fmt.Printf("\nProperties No Longer Linked (%d):\n", len(result.LostProperties))
		for _, p := range result.LostProperties {
			fmt.Printf("  [-] %s  %s\n", p.BBL, p.Address)
		}
	}

	if len(result.NewOwners) > 0 {
		fmt.Printf("\nNew Owners (%d):\n", len(result.NewOwners))
		for _, name := range result.NewOwners {
			fmt.Printf("  [+] %s\n", name)
		}
	}

	if len(result.LostOwners) > 0 {
		fmt.Printf("\nOwners No Longer Linked (%d):\n", len(result.LostOwners))
		for _, name := range result.LostOwners {
			fmt.Printf("  [-] %s\n", name)
		}
	}

	if result.UnchangedProperties > 0 {
		fmt.Printf("\nUnchanged: %d properties\n", result.UnchangedProperties)
	}

	return nil
}

// formatChangeDirection formats the portfolio change direction for display.
func formatChangeDirection(change PortfolioChange) string {
	switch change.Direction {
	case changeDirectionGrew:
		return fmt.Sprintf("GREW (+%d properties)", change.PropertyDelta)
	case changeDirectionShrank:
		return fmt.Sprintf("SHRANK (%d properties)", change.PropertyDelta)
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

// formatValueDelta formats an assessed-value delta with sign for display.
func formatValueDelta(delta float64) string {
	if delta > 0 {
		return fmt.Sprintf("+$%.0f", delta)
	} else if delta < 0 {
		return fmt.Sprintf("-$%.0f", -delta)
	}
	return "$0"
}
