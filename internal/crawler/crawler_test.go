package crawler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/propfolio/ownergraph/internal/graph"
	"github.com/propfolio/ownergraph/internal/model"
)

// fakeSource is a scripted DataSource for crawl tests.
type fakeSource struct {
	mu sync.Mutex

	// registrationsByBBL maps BBL keys to filings.
	registrationsByBBL map[string][]model.Registration

	// contactsByReg maps registration ids to contact rows.
	contactsByReg map[string][]model.Contact

	// contactsByName maps search patterns to contact rows.
	contactsByName map[string][]model.Contact

	// contactsByAddress maps "house|prefix" keys to contact rows.
	contactsByAddress map[string][]model.Contact

	// failRegistrations forces Registrations to error for these BBL keys.
	failRegistrations map[string]bool

	// calls records method invocations for assertions.
	calls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		registrationsByBBL: make(map[string][]model.Registration),
		contactsByReg:      make(map[string][]model.Contact),
		contactsByName:     make(map[string][]model.Contact),
		contactsByAddress:  make(map[string][]model.Contact),
		failRegistrations:  make(map[string]bool),
	}
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSource) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeSource) Registrations(_ context.Context, bbl model.BBL) ([]model.Registration, error) {
	f.record("Registrations:" + bbl.Key())
	if f.failRegistrations[bbl.Key()] {
		return nil, errors.New("source unavailable")
	}
	return f.registrationsByBBL[bbl.Key()], nil
}

func (f *fakeSource) RegistrationsByID(_ context.Context, ids []string) ([]model.Registration, error) {
	f.record("RegistrationsByID")
	var out []model.Registration
	for _, id := range ids {
		for _, regs := range f.registrationsByBBL {
			for _, reg := range regs {
				if reg.ID == id {
					out = append(out, reg)
				}
			}
		}
	}
	return out, nil
}

func (f *fakeSource) Contacts(_ context.Context, registrationID string) ([]model.Contact, error) {
	f.record("Contacts:" + registrationID)
	return f.contactsByReg[registrationID], nil
}

func (f *fakeSource) ContactsByName(_ context.Context, pattern string, _ bool) ([]model.Contact, error) {
	f.record("ContactsByName:" + pattern)
	return f.contactsByName[pattern], nil
}

func (f *fakeSource) ContactsByAddress(_ context.Context, houseNumber, streetPrefix string) ([]model.Contact, error) {
	f.record("ContactsByAddress:" + houseNumber + "|" + streetPrefix)
	return f.contactsByAddress[houseNumber+"|"+streetPrefix], nil
}

// orgContact builds a contact row naming an organization.
func orgContact(regID, role, name string) model.Contact {
	return model.Contact{RegistrationID: regID, Role: role, Party: model.Organization{Name: name}}
}

// TestCrawlSingleContact covers the minimal one-registration crawl:
// one filing, one head-officer entity, no business address.
func TestCrawlSingleContact(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.contactsByReg["R1"] = []model.Contact{orgContact("R1", "Head Officer", "ABC REALTY LLC")}

	store, rounds, err := New(source).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rounds < 1 {
		t.Fatalf("expected at least one round, got %d", rounds)
	}

	if store.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes (entity + property), got %d", store.NodeCount())
	}
	entity := store.Node(model.MakeNodeID(model.KindEntity, "ABC REALTY LLC"))
	if entity == nil {
		t.Fatal("entity node missing")
	}
	if store.Node(model.PropertyNodeID(seed)) == nil {
		t.Fatal("property node missing")
	}

	edges := store.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.From != entity.ID || e.To != model.PropertyNodeID(seed) || e.Role != "Head Officer" {
		t.Errorf("unexpected edge %+v", e)
	}
}

// TestCrawlDepthBound verifies the crawl stops before a second round:
// with maxDepth 1, a name discovered in the first round is never expanded.
func TestCrawlDepthBound(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.contactsByReg["R1"] = []model.Contact{orgContact("R1", "Head Officer", "ABC REALTY LLC")}
	source.contactsByName["ABC REALTY LLC"] = []model.Contact{orgContact("R2", "Head Officer", "ABC REALTY LLC")}

	_, rounds, err := New(source, WithMaxDepth(1)).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rounds != 1 {
		t.Errorf("expected exactly 1 round, got %d", rounds)
	}
	if source.called("ContactsByName:ABC REALTY LLC") {
		t.Error("name discovered in round 1 must not be expanded under maxDepth 1")
	}
}

// TestCrawlRoleFilter verifies generic site-manager rows never become nodes.
func TestCrawlRoleFilter(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(2, 200, 2)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.contactsByReg["R1"] = []model.Contact{
		{RegistrationID: "R1", Role: "SiteManager", Party: model.Person{First: "SAM", Last: "MGR"}},
		{RegistrationID: "R1", Role: "Site Manager", Party: model.Organization{Name: "MGMT CO"}},
	}

	store, _, err := New(source).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.NodeCount() != 1 {
		t.Errorf("site-manager contacts must not produce nodes; got %d nodes", store.NodeCount())
	}
}

// TestCrawlNameExpansion verifies the second round links a name to its
// other filings and enqueues newly discovered properties.
func TestCrawlNameExpansion(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	other := model.MustNewBBL(3, 300, 3)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.registrationsByBBL[other.Key()] = []model.Registration{{ID: "R2", BBL: other, Zip: "11215"}}
	source.contactsByReg["R1"] = []model.Contact{orgContact("R1", "Head Officer", "ABC REALTY LLC")}
	source.contactsByName["ABC REALTY LLC"] = []model.Contact{
		orgContact("R1", "Head Officer", "ABC REALTY LLC"),
		orgContact("R2", "Head Officer", "ABC REALTY LLC"),
	}

	store, rounds, err := New(source, WithMaxDepth(2)).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rounds != 2 {
		t.Fatalf("expected 2 rounds, got %d", rounds)
	}

	otherNode := store.Node(model.PropertyNodeID(other))
	if otherNode == nil {
		t.Fatal("property discovered via name search missing")
	}
	if otherNode.Property.Zip != "11215" {
		t.Errorf("registration fields not carried onto property node: %+v", otherNode.Property)
	}

	// R1 was already visited in round 1; only R2 may produce a
	// registration edge.
	var regEdges int
	for _, e := range store.Edges() {
		if e.Role == model.RoleRegistration {
			regEdges++
			if e.To != otherNode.ID {
				t.Errorf("registration edge to unexpected property %v", e)
			}
		}
	}
	if regEdges != 1 {
		t.Errorf("expected 1 registration edge, got %d", regEdges)
	}
}

// TestCrawlSharedAddress verifies shared-address discovery links
// nominally unrelated names through one mailing address.
func TestCrawlSharedAddress(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}

	abc := orgContact("R1", "Head Officer", "ABC REALTY LLC")
	abc.BusinessHouseNumber = "123"
	abc.BusinessStreetName = "MAIN ST"
	abc.BusinessCity = "NEW YORK"
	abc.BusinessState = "NY"
	abc.BusinessZip = "10001"
	source.contactsByReg["R1"] = []model.Contact{abc}
	source.contactsByName["ABC REALTY LLC"] = []model.Contact{abc}

	stranger := orgContact("R9", "Head Officer", "XYZ HOLDINGS LLC")
	source.contactsByAddress["123|MAIN ST"] = []model.Contact{abc, stranger}

	store, _, err := New(source, WithMaxDepth(3)).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addrID := model.MakeNodeID(model.KindAddress, "123 MAIN ST NEW YORK NY 10001")
	if store.Node(addrID) == nil {
		t.Fatal("shared address node missing")
	}
	xyzID := model.MakeNodeID(model.KindEntity, "XYZ HOLDINGS LLC")
	if store.Node(xyzID) == nil {
		t.Fatal("entity discovered via shared address missing")
	}

	// Both names must land in the seed's component even though no
	// registration links XYZ HOLDINGS to the seed parcel.
	component := graph.ExtractComponent(store, model.PropertyNodeID(seed))
	ids := make(map[model.NodeID]bool)
	for _, n := range component.Nodes {
		ids[n.ID] = true
	}
	if !ids[xyzID] || !ids[addrID] {
		t.Error("shared-address cluster not connected to the seed component")
	}

	// The shared address collects edges from both names.
	var incident int
	for _, e := range component.Edges {
		if e.From == addrID || e.To == addrID {
			incident++
		}
	}
	if incident < 2 {
		t.Errorf("expected >=2 edges incident to shared address, got %d", incident)
	}
}

// TestCrawlEmptyNameSearch verifies a name with no filings resolves
// quietly (zero new nodes, no error).
func TestCrawlEmptyNameSearch(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.contactsByReg["R1"] = []model.Contact{orgContact("R1", "Head Officer", "GHOST REALTY LLC")}
	// No contactsByName entry: the search returns zero rows.

	store, rounds, err := New(source, WithMaxDepth(2)).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("crawl must complete without error, got %v", err)
	}
	if rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", rounds)
	}
	if store.NodeCount() != 2 {
		t.Errorf("expected no new nodes from empty search, got %d", store.NodeCount())
	}
}

// TestCrawlBranchFailure verifies a failed lookup degrades one branch
// without aborting the crawl.
func TestCrawlBranchFailure(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.failRegistrations[seed.Key()] = true

	store, _, err := New(source).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("branch failure must not abort the crawl, got %v", err)
	}

	// The unreachable seed still yields a valid single-node graph.
	if store.NodeCount() != 1 || store.EdgeCount() != 0 {
		t.Errorf("expected bare seed graph, got %d nodes %d edges", store.NodeCount(), store.EdgeCount())
	}
}

// TestCrawlCancellation verifies the partial graph comes back with the
// context error when the deadline hits between rounds.
func TestCrawlCancellation(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, rounds, err := New(source).Crawl(ctx, seed)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store == nil || store.NodeCount() != 1 {
		t.Error("partial graph with the seed should still be returned")
	}
	if rounds != 0 {
		t.Errorf("no rounds should complete after cancellation, got %d", rounds)
	}
}

// TestCrawlPropertyTaskCap verifies the per-round property cap drops
// overflow tasks instead of deferring them.
func TestCrawlPropertyTaskCap(t *testing.T) {
	t.Parallel()

	seed := model.MustNewBBL(1, 100, 1)
	source := newFakeSource()
	source.registrationsByBBL[seed.Key()] = []model.Registration{{ID: "R1", BBL: seed}}
	source.contactsByReg["R1"] = []model.Contact{orgContact("R1", "Head Officer", "MEGA HOLDINGS LLC")}

	// The name search surfaces four properties, but the next round may
	// expand at most two of them.
	var namedContacts []model.Contact
	for i := 2; i <= 5; i++ {
		bbl := model.MustNewBBL(1, 100, i)
		regID := "R" + bbl.Key()
		source.registrationsByBBL[bbl.Key()] = []model.Registration{{ID: regID, BBL: bbl}}
		namedContacts = append(namedContacts, orgContact(regID, "Head Officer", "MEGA HOLDINGS LLC"))
	}
	source.contactsByName["MEGA HOLDINGS LLC"] = namedContacts

	_, _, err := New(source,
		WithMaxDepth(3),
		WithPropertyTasksPerRound(2),
	).Crawl(context.Background(), seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var expanded int
	source.mu.Lock()
	for _, call := range source.calls {
		if strings.HasPrefix(call, "Registrations:") && call != "Registrations:"+seed.Key() {
			expanded++
		}
	}
	source.mu.Unlock()

	if expanded > 2 {
		t.Errorf("round cap violated: %d property expansions beyond the seed", expanded)
	}
}
