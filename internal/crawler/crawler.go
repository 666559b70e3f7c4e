package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/propfolio/ownergraph/internal/graph"
	"github.com/propfolio/ownergraph/internal/model"
	"github.com/propfolio/ownergraph/internal/normalize"
)

// Default crawl parameters. The per-round caps bound the cost of one
// round against a rate-limited source; they are configurable, not
// hardwired literals.
const (
	// DefaultMaxDepth is the default number of crawl rounds.
	DefaultMaxDepth = 2

	// DefaultPropertyTasksPerRound caps property expansions per round.
	DefaultPropertyTasksPerRound = 8

	// DefaultNameTasksPerRound caps name expansions per round.
	DefaultNameTasksPerRound = 5

	// DefaultSharedAddressesPerName caps shared-address expansions per
	// name task. One address per name already surfaces the mail-drop
	// signal; more multiplies queries combinatorially.
	DefaultSharedAddressesPerName = 1

	// DefaultRegistrationBatchSize caps ids per batched registration fetch.
	DefaultRegistrationBatchSize = 20

	// minBusinessAddressLen is the shortest normalized business address
	// worth a node. Shorter strings are blank or placeholder mail fields.
	minBusinessAddressLen = 5

	// streetPrefixTokens is how many leading street-name tokens the
	// shared-address search matches on.
	streetPrefixTokens = 2
)

// DataSource is the registration lookup capability the crawler expands
// against. Every call may be slow, return empty, or fail; the crawler
// treats each failure as "no data from this branch".
type DataSource interface {
	// Registrations looks up the registration filings for one parcel.
	Registrations(ctx context.Context, bbl model.BBL) ([]model.Registration, error)

	// RegistrationsByID batch-fetches registrations by registration id.
	RegistrationsByID(ctx context.Context, ids []string) ([]model.Registration, error)

	// Contacts looks up the contact rows of one registration.
	Contacts(ctx context.Context, registrationID string) ([]model.Contact, error)

	// ContactsByName searches contact rows by business name or surname.
	ContactsByName(ctx context.Context, pattern string, business bool) ([]model.Contact, error)

	// ContactsByAddress searches contact rows sharing a business street
	// number and street-name prefix.
	ContactsByAddress(ctx context.Context, houseNumber, streetPrefix string) ([]model.Contact, error)
}

// Crawler runs depth-bounded BFS crawls against a DataSource. A Crawler
// is reusable; all per-crawl state lives in the crawl struct, so nothing
// leaks between invocations or between concurrent builds.
type Crawler struct {
	// source is the registration data source.
	source DataSource

	// classifier decides person vs business entity.
	classifier normalize.Classifier

	// logger for structured logging.
	logger *slog.Logger

	maxDepth               int
	propertyTasksPerRound  int
	nameTasksPerRound      int
	sharedAddressesPerName int
	registrationBatchSize  int
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithMaxDepth sets the round budget. Each unit of depth is one round.
func WithMaxDepth(depth int) CrawlerOption {
	return func(c *Crawler) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithPropertyTasksPerRound caps property expansions per round.
func WithPropertyTasksPerRound(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.propertyTasksPerRound = n
		}
	}
}

// WithNameTasksPerRound caps name expansions per round.
func WithNameTasksPerRound(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.nameTasksPerRound = n
		}
	}
}

// WithSharedAddressesPerName caps shared-address expansions per name task.
func WithSharedAddressesPerName(n int) CrawlerOption {
	return func(c *Crawler) {
		if n >= 0 {
			c.sharedAddressesPerName = n
		}
	}
}

// WithRegistrationBatchSize caps ids per batched registration fetch.
func WithRegistrationBatchSize(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.registrationBatchSize = n
		}
	}
}

// WithClassifier sets the person/entity classification strategy.
func WithClassifier(cl normalize.Classifier) CrawlerOption {
	return func(c *Crawler) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler over the given data source.
func New(source DataSource, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		source:                 source,
		classifier:             normalize.NewKeywordClassifier(),
		logger:                 slog.Default(),
		maxDepth:               DefaultMaxDepth,
		propertyTasksPerRound:  DefaultPropertyTasksPerRound,
		nameTasksPerRound:      DefaultNameTasksPerRound,
		sharedAddressesPerName: DefaultSharedAddressesPerName,
		registrationBatchSize:  DefaultRegistrationBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// crawl holds the state of one crawl invocation: the store under
// construction, the visited sets, and the frontier being collected for
// the next round. It is discarded when the crawl returns.
type crawl struct {
	store *graph.Store

	mu                   sync.Mutex
	visitedProperties    map[string]bool
	visitedRegistrations map[string]bool
	visitedNames         map[string]bool
	next                 []Task
}

// markProperty records a parcel as visited; reports true if newly marked.
func (s *crawl) markProperty(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visitedProperties[key] {
		return false
	}
	s.visitedProperties[key] = true
	return true
}

// markRegistration records a filing as visited; reports true if newly marked.
func (s *crawl) markRegistration(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visitedRegistrations[id] {
		return false
	}
	s.visitedRegistrations[id] = true
	return true
}

// markName records a normalized name as visited; reports true if newly marked.
func (s *crawl) markName(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visitedNames[key] {
		return false
	}
	s.visitedNames[key] = true
	return true
}

// visitedRegistration reports whether a filing was already processed.
func (s *crawl) visitedRegistration(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visitedRegistrations[id]
}

// enqueue adds a task to the next round's frontier.
func (s *crawl) enqueue(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = append(s.next, task)
}

// takeNext returns the collected frontier and resets it.
func (s *crawl) takeNext() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.next
	s.next = nil
	return tasks
}

// Crawl expands the ownership graph outward from the seed parcel for up
// to the configured number of rounds. It returns the graph built so far
// and the number of rounds completed; on context cancellation the
// partial graph is returned alongside the context error so the caller
// can still distill what was found.
//
// Round N+1 never starts before round N fully resolves, because its
// frontier is exactly round N's output.
func (c *Crawler) Crawl(ctx context.Context, seed model.BBL) (*graph.Store, int, error) {
	state := &crawl{
		store:                graph.NewStore(),
		visitedProperties:    map[string]bool{seed.Key(): true},
		visitedRegistrations: make(map[string]bool),
		visitedNames:         make(map[string]bool),
	}

	state.store.UpsertNode(model.Node{
		ID:       model.PropertyNodeID(seed),
		Kind:     model.KindProperty,
		Label:    seed.Key(),
		Property: &model.PropertyAttrs{BBL: seed},
	})

	frontier := []Task{PropertyTask{BBL: seed}}

	rounds := 0
	for round := 0; round < c.maxDepth && len(frontier) > 0; round++ {
		select {
		case <-ctx.Done():
			return state.store, rounds, ctx.Err()
		default:
		}

		c.logger.Debug("starting crawl round",
			"round", round,
			"frontier", len(frontier),
		)

		if err := c.runRound(ctx, state, frontier, c.maxDepth-round-1); err != nil {
			return state.store, rounds, err
		}

		rounds++
		frontier = state.takeNext()
	}

	c.logger.Info("crawl complete",
		"seed", seed.Key(),
		"rounds", rounds,
		"nodes", state.store.NodeCount(),
		"edges", state.store.EdgeCount(),
	)

	return state.store, rounds, nil
}

// runRound fans out the round's tasks concurrently and joins them.
// Only context cancellation is an error; every lookup failure inside a
// branch degrades to "no new nodes from this branch".
func (c *Crawler) runRound(ctx context.Context, state *crawl, frontier []Task, roundsRemaining int) error {
	properties, names := splitFrontier(frontier)

	// Hard caps bound per-round cost against the rate-limited source.
	// Overflow tasks are dropped, not deferred: the frontier for the
	// next round is derived solely from this round's results.
	if len(properties) > c.propertyTasksPerRound {
		c.logger.Debug("dropping property tasks over round cap",
			"cap", c.propertyTasksPerRound,
			"dropped", len(properties)-c.propertyTasksPerRound,
		)
		properties = properties[:c.propertyTasksPerRound]
	}
	if len(names) > c.nameTasksPerRound {
		c.logger.Debug("dropping name tasks over round cap",
			"cap", c.nameTasksPerRound,
			"dropped", len(names)-c.nameTasksPerRound,
		)
		names = names[:c.nameTasksPerRound]
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, task := range properties {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.expandProperty(ctx, state, task)
			return nil
		})
	}

	for _, task := range names {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.expandName(ctx, state, task, roundsRemaining)
			return nil
		})
	}

	return g.Wait()
}

// expandProperty processes one property task: fetch the parcel's
// registrations, then each unvisited filing's contacts, recording name
// and address nodes and enqueuing newly seen names.
func (c *Crawler) expandProperty(ctx context.Context, state *crawl, task PropertyTask) {
	regs, err := c.source.Registrations(ctx, task.BBL)
	if err != nil {
		c.logger.Warn("registration lookup failed",
			"bbl", task.BBL.Key(),
			"error", err,
		)
		return
	}

	for _, reg := range regs {
		if !state.markRegistration(reg.ID) {
			continue
		}

		contacts, err := c.source.Contacts(ctx, reg.ID)
		if err != nil {
			c.logger.Warn("contact lookup failed",
				"registration", reg.ID,
				"error", err,
			)
			continue
		}

		property := state.store.UpsertNode(model.Node{
			ID:    model.PropertyNodeID(task.BBL),
			Kind:  model.KindProperty,
			Label: task.BBL.Key(),
			Property: &model.PropertyAttrs{
				BBL:           task.BBL,
				StreetAddress: reg.StreetAddress(),
				Zip:           reg.Zip,
			},
		})

		for _, contact := range contacts {
			c.recordContact(state, contact, property.ID)
		}
	}
}

// recordContact turns one contact row into graph structure: a name node
// linked to the property, an optional business-address node, and a name
// task for the next round if the name is new.
func (c *Crawler) recordContact(state *crawl, contact model.Contact, propertyID model.NodeID) {
	// Generic site-manager designations carry no ownership signal.
	if isSiteManagerRole(contact.Role) {
		return
	}
	if contact.Party == nil {
		return
	}

	key := normalize.Name(contact.Party.DisplayName())
	if key == "" {
		return
	}

	business := c.classifier.IsBusiness(key)
	kind := model.KindPerson
	if business {
		kind = model.KindEntity
	}

	name := state.store.UpsertNode(model.Node{
		ID:    model.MakeNodeID(kind, key),
		Kind:  kind,
		Label: key,
	})

	if err := state.store.AddEdge(name.ID, propertyID, contact.Role, model.SourceRegistrations); err != nil {
		c.logger.Warn("failed to record contact edge", "error", err)
	}

	if addrKey := normalize.Address(contact.BusinessAddress()); len(addrKey) > minBusinessAddressLen {
		address := state.store.UpsertNode(model.Node{
			ID:    model.MakeNodeID(model.KindAddress, addrKey),
			Kind:  model.KindAddress,
			Label: addrKey,
		})
		if err := state.store.AddEdge(name.ID, address.ID, model.RoleBusinessAddress, model.SourceRegistrations); err != nil {
			c.logger.Warn("failed to record address edge", "error", err)
		}
	}

	if state.markName(key) {
		state.enqueue(NameTask{Key: key, Business: business})
	}
}

// expandName processes one name task: search filings by name, link the
// name to every property it registered, enqueue newly seen properties,
// and expand at most one shared business address.
func (c *Crawler) expandName(ctx context.Context, state *crawl, task NameTask, roundsRemaining int) {
	pattern := task.Key
	if !task.Business {
		pattern = normalize.SurnameToken(task.Key)
	}

	contacts, err := c.source.ContactsByName(ctx, pattern, task.Business)
	if err != nil {
		c.logger.Warn("contact search failed",
			"name", task.Key,
			"error", err,
		)
		return
	}
	if len(contacts) == 0 {
		// A name with no filings resolves with zero new nodes; the
		// crawl itself continues untouched.
		return
	}

	kind := model.KindPerson
	if task.Business {
		kind = model.KindEntity
	}
	name := state.store.UpsertNode(model.Node{
		ID:    model.MakeNodeID(kind, task.Key),
		Kind:  kind,
		Label: task.Key,
	})

	c.linkRegistrations(ctx, state, name.ID, contacts)

	if roundsRemaining > 0 && c.sharedAddressesPerName > 0 {
		c.expandSharedAddresses(ctx, state, task, contacts)
	}
}

// linkRegistrations batch-fetches the distinct unvisited registrations
// referenced by the matched contacts and links the name to each parcel.
func (c *Crawler) linkRegistrations(ctx context.Context, state *crawl, nameID model.NodeID, contacts []model.Contact) {
	seen := make(map[string]bool)
	var ids []string
	for _, contact := range contacts {
		id := contact.RegistrationID
		if id == "" || seen[id] || state.visitedRegistration(id) {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for start := 0; start < len(ids); start += c.registrationBatchSize {
		end := min(start+c.registrationBatchSize, len(ids))

		regs, err := c.source.RegistrationsByID(ctx, ids[start:end])
		if err != nil {
			c.logger.Warn("registration batch fetch failed", "error", err)
			continue
		}

		for _, reg := range regs {
			if !state.markRegistration(reg.ID) {
				continue
			}
			if reg.BBL.IsZero() {
				continue
			}

			property := state.store.UpsertNode(model.Node{
				ID:    model.PropertyNodeID(reg.BBL),
				Kind:  model.KindProperty,
				Label: reg.BBL.Key(),
				Property: &model.PropertyAttrs{
					BBL:           reg.BBL,
					StreetAddress: reg.StreetAddress(),
					Zip:           reg.Zip,
				},
			})

			if err := state.store.AddEdge(nameID, property.ID, model.RoleRegistration, model.SourceContactSearch); err != nil {
				c.logger.Warn("failed to record registration edge", "error", err)
			}

			if state.markProperty(reg.BBL.Key()) {
				state.enqueue(PropertyTask{BBL: reg.BBL})
			}
		}
	}
}

// expandSharedAddresses re-queries contacts sharing this name's business
// mailing address and links every distinct name found there to the
// shared address node. This is how ownership of nominally unrelated
// shell entities sharing one mail drop gets surfaced without any direct
// registration linking them.
func (c *Crawler) expandSharedAddresses(ctx context.Context, state *crawl, task NameTask, contacts []model.Contact) {
	expanded := 0
	seenAddr := make(map[string]bool)

	for _, contact := range contacts {
		if expanded >= c.sharedAddressesPerName {
			break
		}

		house := contact.BusinessHouseNumber
		street := contact.BusinessStreetName
		addrKey := normalize.Address(contact.BusinessAddress())
		if house == "" || street == "" || len(addrKey) <= minBusinessAddressLen || seenAddr[addrKey] {
			continue
		}
		seenAddr[addrKey] = true
		expanded++

		others, err := c.source.ContactsByAddress(ctx, house, normalize.StreetPrefix(street, streetPrefixTokens))
		if err != nil {
			c.logger.Warn("shared-address search failed",
				"address", addrKey,
				"error", err,
			)
			continue
		}

		address := state.store.UpsertNode(model.Node{
			ID:    model.MakeNodeID(model.KindAddress, addrKey),
			Kind:  model.KindAddress,
			Label: addrKey,
		})

		seenNames := make(map[string]bool)
		for _, other := range others {
			if other.Party == nil {
				continue
			}
			otherKey := normalize.Name(other.Party.DisplayName())
			if otherKey == "" || otherKey == task.Key || seenNames[otherKey] {
				continue
			}
			seenNames[otherKey] = true

			business := c.classifier.IsBusiness(otherKey)
			kind := model.KindPerson
			if business {
				kind = model.KindEntity
			}
			otherNode := state.store.UpsertNode(model.Node{
				ID:    model.MakeNodeID(kind, otherKey),
				Kind:  kind,
				Label: otherKey,
			})

			if err := state.store.AddEdge(otherNode.ID, address.ID, model.RoleSharedBusinessAddress, model.SourceAddressSearch); err != nil {
				c.logger.Warn("failed to record shared-address edge", "error", err)
			}

			if state.markName(otherKey) {
				state.enqueue(NameTask{Key: otherKey, Business: business})
			}
		}
	}
}

// isSiteManagerRole reports whether a contact role is a generic site
// manager designation. Filings write it as "SiteManager", "Site Manager",
// or uppercase variants.
func isSiteManagerRole(role string) bool {
	collapsed := strings.ReplaceAll(normalize.Name(role), " ", "")
	return collapsed == "SITEMANAGER"
}
