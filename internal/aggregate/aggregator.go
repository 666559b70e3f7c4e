package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/propfolio/ownergraph/internal/graph"
	"github.com/propfolio/ownergraph/internal/model"
)

// Default aggregation parameters.
const (
	// DefaultTopAddresses is how many shared addresses the result keeps.
	DefaultTopAddresses = 5

	// DefaultConnectedViaCap caps the neighbor labels listed per property.
	DefaultConnectedViaCap = 3

	// enrichmentConcurrency bounds concurrent per-borough enrichment
	// queries. There are only five boroughs, so this is effectively
	// "all at once" while still using a bounded group.
	enrichmentConcurrency = 5
)

// Enricher supplies tax-assessment records for parcels, one batched
// query per borough. A failed or empty batch degrades those parcels to
// zeroed enrichment fields; it never drops them from the portfolio.
type Enricher interface {
	// Enrich returns enrichment records for the given parcels of one
	// borough, keyed by BBL key. Parcels with no match are absent.
	Enrich(ctx context.Context, boroCode int, bbls []model.BBL) (map[string]model.Enrichment, error)
}

// Aggregator turns graph components into portfolio results.
type Aggregator struct {
	// enricher supplies assessment data; nil disables enrichment.
	enricher Enricher

	// logger for structured logging.
	logger *slog.Logger

	topAddresses    int
	connectedViaCap int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTopAddresses sets how many shared addresses the result keeps.
func WithTopAddresses(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topAddresses = n
		}
	}
}

// WithConnectedViaCap caps the neighbor labels listed per property.
func WithConnectedViaCap(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.connectedViaCap = n
		}
	}
}

// New creates an Aggregator. The enricher may be nil, in which case
// every property keeps zeroed assessment fields.
func New(enricher Enricher, opts ...Option) *Aggregator {
	a := &Aggregator{
		enricher:        enricher,
		logger:          slog.Default(),
		topAddresses:    DefaultTopAddresses,
		connectedViaCap: DefaultConnectedViaCap,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate distills a component into the final portfolio result.
func (a *Aggregator) Aggregate(ctx context.Context, component *graph.Component, roundsRun int) *model.PortfolioResult {
	result := &model.PortfolioResult{
		Properties:      []model.PropertySummary{},
		People:          []model.OwnerSummary{},
		Entities:        []model.OwnerSummary{},
		CommonAddresses: []model.AddressSummary{},
		Graph: model.GraphStats{
			NodeCount: len(component.Nodes),
			EdgeCount: len(component.Edges),
			RoundsRun: roundsRun,
		},
	}

	neighbors := buildNeighborLabels(component)

	result.Properties = a.summarizeProperties(ctx, component, neighbors)
	result.People, result.Entities = a.summarizeOwners(component)
	result.CommonAddresses = a.summarizeAddresses(component)

	return result
}

// buildNeighborLabels maps each node id to the labels of its direct
// neighbors in either edge direction, deduplicated, insertion-ordered.
func buildNeighborLabels(component *graph.Component) map[model.NodeID][]string {
	labels := make(map[model.NodeID]string, len(component.Nodes))
	for _, n := range component.Nodes {
		labels[n.ID] = n.Label
	}

	seen := make(map[model.NodeID]map[string]bool)
	out := make(map[model.NodeID][]string)
	add := func(id model.NodeID, label string) {
		if label == "" {
			return
		}
		if seen[id] == nil {
			seen[id] = make(map[string]bool)
		}
		if seen[id][label] {
			return
		}
		seen[id][label] = true
		out[id] = append(out[id], label)
	}

	for _, e := range component.Edges {
		add(e.From, labels[e.To])
		add(e.To, labels[e.From])
	}
	return out
}

// summarizeProperties enriches and ranks the component's properties.
func (a *Aggregator) summarizeProperties(ctx context.Context, component *graph.Component, neighbors map[model.NodeID][]string) []model.PropertySummary {
	byBorough := make(map[int][]model.BBL)
	var propertyNodes []*model.Node
	for _, n := range component.Nodes {
		if n.Kind != model.KindProperty || n.Property == nil || n.Property.BBL.IsZero() {
			continue
		}
		propertyNodes = append(propertyNodes, n)
		boro := n.Property.BBL.BoroCode()
		byBorough[boro] = append(byBorough[boro], n.Property.BBL)
	}

	enrichments := a.fetchEnrichments(ctx, byBorough)

	summaries := make([]model.PropertySummary, 0, len(propertyNodes))
	for _, n := range propertyNodes {
		bbl := n.Property.BBL
		summary := model.PropertySummary{
			BBL:     bbl.Key(),
			Borough: bbl.BoroughName(),
			Address: n.Property.StreetAddress,
			Zip:     n.Property.Zip,
		}

		if e, ok := enrichments[bbl.Key()]; ok {
			if e.Address != "" {
				summary.Address = e.Address
			}
			summary.OwnerName = e.OwnerName
			summary.Units = e.Units
			summary.YearBuilt = e.YearBuilt
			summary.AssessedValue = e.AssessedValue
			summary.Floors = e.Floors
			summary.BuildingArea = e.BuildingArea
			summary.Zoning = e.Zoning
		}

		via := neighbors[n.ID]
		if len(via) > a.connectedViaCap {
			via = via[:a.connectedViaCap]
		}
		summary.ConnectedVia = via

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].AssessedValue != summaries[j].AssessedValue {
			return summaries[i].AssessedValue > summaries[j].AssessedValue
		}
		return summaries[i].BBL < summaries[j].BBL
	})
	return summaries
}

// fetchEnrichments runs one enrichment batch per borough, concurrently.
// A failed borough batch logs and degrades to no enrichment for its
// parcels; the portfolio keeps every property either way.
func (a *Aggregator) fetchEnrichments(ctx context.Context, byBorough map[int][]model.BBL) map[string]model.Enrichment {
	merged := make(map[string]model.Enrichment)
	if a.enricher == nil || len(byBorough) == 0 {
		return merged
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichmentConcurrency)

	for boro, bbls := range byBorough {
		g.Go(func() error {
			records, err := a.enricher.Enrich(ctx, boro, bbls)
			if err != nil {
				a.logger.Warn("enrichment batch failed",
					"borough", boro,
					"parcels", len(bbls),
					"error", err,
				)
				return nil
			}
			mu.Lock()
			for key, record := range records {
				merged[key] = record
			}
			mu.Unlock()
			return nil
		})
	}

	// Branches never return errors; Wait only surfaces cancellation,
	// at which point the merged map simply holds what finished.
	_ = g.Wait() //nolint:errcheck // partial enrichment is acceptable

	return merged
}

// summarizeOwners ranks people and entities by property connectivity.
func (a *Aggregator) summarizeOwners(component *graph.Component) (people, entities []model.OwnerSummary) {
	kinds := make(map[model.NodeID]model.NodeKind, len(component.Nodes))
	labels := make(map[model.NodeID]string, len(component.Nodes))
	for _, n := range component.Nodes {
		kinds[n.ID] = n.Kind
		labels[n.ID] = n.Label
	}

	type ownerAccum struct {
		propertyCount int
		roles         map[string]bool
		addresses     map[string]bool
	}
	accums := make(map[model.NodeID]*ownerAccum)
	accumFor := func(id model.NodeID) *ownerAccum {
		if accums[id] == nil {
			accums[id] = &ownerAccum{roles: make(map[string]bool), addresses: make(map[string]bool)}
		}
		return accums[id]
	}

	for _, e := range component.Edges {
		for _, end := range []struct {
			self, other model.NodeID
		}{{e.From, e.To}, {e.To, e.From}} {
			kind := kinds[end.self]
			if kind != model.KindPerson && kind != model.KindEntity {
				continue
			}
			acc := accumFor(end.self)
			if e.Role != "" {
				acc.roles[e.Role] = true
			}
			switch kinds[end.other] {
			case model.KindProperty:
				acc.propertyCount++
			case model.KindAddress:
				acc.addresses[labels[end.other]] = true
			}
		}
	}

	for _, n := range component.Nodes {
		if n.Kind != model.KindPerson && n.Kind != model.KindEntity {
			continue
		}
		acc := accumFor(n.ID)
		summary := model.OwnerSummary{
			Name:          n.Label,
			PropertyCount: acc.propertyCount,
			Roles:         sortedKeys(acc.roles),
			Addresses:     sortedKeys(acc.addresses),
		}
		if n.Kind == model.KindPerson {
			people = append(people, summary)
		} else {
			entities = append(entities, summary)
		}
	}

	byCount := func(list []model.OwnerSummary) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].PropertyCount != list[j].PropertyCount {
				return list[i].PropertyCount > list[j].PropertyCount
			}
			return list[i].Name < list[j].Name
		}
	}
	sort.SliceStable(people, byCount(people))
	sort.SliceStable(entities, byCount(entities))

	if people == nil {
		people = []model.OwnerSummary{}
	}
	if entities == nil {
		entities = []model.OwnerSummary{}
	}
	return people, entities
}

// summarizeAddresses returns the top shared addresses by incident edge
// count. Duplicate edges count separately on purpose: each filing from
// the same mail drop strengthens the signal.
func (a *Aggregator) summarizeAddresses(component *graph.Component) []model.AddressSummary {
	counts := make(map[model.NodeID]int)
	for _, e := range component.Edges {
		counts[e.From]++
		counts[e.To]++
	}

	summaries := make([]model.AddressSummary, 0)
	for _, n := range component.Nodes {
		if n.Kind != model.KindAddress {
			continue
		}
		summaries = append(summaries, model.AddressSummary{
			Address:   n.Label,
			LinkCount: counts[n.ID],
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LinkCount != summaries[j].LinkCount {
			return summaries[i].LinkCount > summaries[j].LinkCount
		}
		return summaries[i].Address < summaries[j].Address
	})

	if len(summaries) > a.topAddresses {
		summaries = summaries[:a.topAddresses]
	}
	return summaries
}

// sortedKeys returns a set's keys in sorted order, or nil for empty sets.
func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
