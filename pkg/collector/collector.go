// Package collector implements the dependency collection engine: the
// traversal that expands root dependencies into a full dependency graph by
// reading descriptors, applying dependency management, resolving version
// specifications, and truncating cycles.
//
// The engine is metadata-only (it never downloads artifact binaries) and
// holds no state across calls; a single Collector may serve concurrent
// collections as long as its reader, resolver, and merger are thread-safe.
package collector

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/descriptor"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/graph"
	"github.com/okvist/quarry/pkg/manager"
	"github.com/okvist/quarry/pkg/observability"
	"github.com/okvist/quarry/pkg/repository"
	"github.com/okvist/quarry/pkg/version"
)

// maxRelocationHops bounds relocation chains; longer chains are treated as
// loops.
const maxRelocationHops = 20

// Collector is the collection engine. Construct it with [New]; the zero
// value is not usable.
type Collector struct {
	reader   descriptor.Reader
	versions version.Resolver
	merger   repository.Merger
}

// New creates a Collector over the given descriptor reader, version range
// resolver, and repository merger. A nil merger falls back to the default
// order-preserving merger.
func New(reader descriptor.Reader, versions version.Resolver, merger repository.Merger) *Collector {
	if merger == nil {
		merger = repository.NewMerger()
	}
	return &Collector{reader: reader, versions: versions, merger: merger}
}

// Collect expands the request's roots into a dependency graph.
//
// Per-subtree failures (descriptor reads, version resolution, relocation
// loops) prune the affected subtree and accumulate on the result without
// aborting sibling traversal. Collect returns a *[Error] wrapping the
// partial result when the request has no roots at all, when the context is
// cancelled mid-traversal, or when descriptor reads failed and the session
// marks those fatal.
func (c *Collector) Collect(ctx context.Context, session *Session, req *Request) (*Result, error) {
	start := time.Now()
	result := &Result{Request: req}

	roots := req.roots()
	if len(roots) == 0 {
		return nil, &Error{
			Result: result,
			Err:    errors.New(errors.ErrCodeCollectionFailed, "request has no root dependencies"),
		}
	}

	label := roots[0].Coordinate.String()
	observability.Collection().OnCollectStart(ctx, label)

	col := &collection{
		c:        c,
		ctx:      ctx,
		session:  session,
		req:      req,
		result:   result,
		outcomes: make(map[string]*readOutcome),
		recorded: make(map[error]bool),
	}

	var parent *graph.Node
	if req.multiRoot() {
		parent = &graph.Node{Repositories: req.Repositories}
		result.Root = parent
	}

	for _, root := range roots {
		if err := col.collectRoot(root, parent); err != nil {
			return nil, &Error{Result: result, Err: err}
		}
	}

	observability.Collection().OnCollectComplete(ctx, label,
		result.Root.Size(), len(result.Exceptions), time.Since(start))

	if session.DescriptorErrorsFatal && col.descriptorFailed {
		cause := result.Exceptions[0]
		for _, e := range result.Exceptions {
			if errors.Is(e, errors.ErrCodeDescriptorError) {
				cause = e
				break
			}
		}
		return nil, &Error{
			Result: result,
			Err: errors.Wrap(errors.ErrCodeDescriptorError, cause,
				"failed to collect dependencies for %s", label),
		}
	}
	return result, nil
}

// collection is the per-call state: the work stack frames reference it for
// the descriptor cache and the accumulating result. It dies with the call.
type collection struct {
	c       *Collector
	ctx     context.Context
	session *Session
	req     *Request
	result  *Result

	// outcomes caches descriptor reads by full coordinate so repeated
	// encounters reuse the read and report its failure at most once.
	outcomes map[string]*readOutcome

	// recorded tracks exception instances already on the result, so a
	// cached read failure surfaces exactly once per distinct coordinate.
	recorded map[error]bool

	descriptorFailed bool
}

type readOutcome struct {
	desc *descriptor.Descriptor
	err  error // wrapped DESCRIPTOR_ERROR, shared across repeat encounters
}

// frame is one level of the explicit traversal stack: a parent node plus the
// child dependencies remaining to be processed under it, with the
// path-contextual manager, repositories, cycle keys, and exclusions.
type frame struct {
	node *graph.Node
	deps []artifact.Dependency
	idx  int

	mgr        manager.Manager
	repos      []repository.Remote
	path       map[artifact.Key]bool
	pathCoords []artifact.Coordinate
	exclusions []artifact.Exclusion
}

// collectRoot processes one declared root: it resolves the root's version,
// reads its descriptor, and drains the transitive expansion. Declared roots
// bypass the optional/scope filters and exclusion checks that apply below
// them. The only error returned is cancellation.
func (col *collection) collectRoot(dep artifact.Dependency, parent *graph.Node) error {
	attach := func(n *graph.Node) {
		if parent == nil {
			col.result.Root = n
		} else {
			parent.Children = append(parent.Children, n)
		}
	}

	d := dep
	vres, err := col.resolveVersions(d, col.req.Repositories)
	if err != nil {
		col.record(err)
		attach(graph.NewNode(&d))
		return nil
	}
	d = d.WithVersion(vres.Selected())

	if err := col.cancelled(); err != nil {
		attach(graph.NewNode(&d))
		return err
	}

	var bits int
	var pre map[string]any
	d, desc, err := col.readFollowingRelocations(d, col.session.manager(), col.req.Repositories, &bits, &pre)
	if err != nil {
		col.record(err)
		attach(graph.NewNode(&d))
		return nil
	}

	node := &graph.Node{
		Dependency:   &d,
		Versions:     vres.Versions,
		Repositories: col.req.Repositories,
		ManagedBits:  bits,
		Premanaged:   pre,
	}
	attach(node)

	if len(desc.Dependencies) == 0 {
		return nil
	}

	// The request-supplied managed list joins the root descriptor's own, as
	// if the root had declared both.
	managed := slices.Clone(col.req.ManagedDependencies)
	managed = append(managed, desc.ManagedDependencies...)

	root := &frame{
		node: node,
		deps: desc.Dependencies,
		mgr: col.session.manager().DeriveFor(manager.Context{
			Dependency:          &d,
			ManagedDependencies: managed,
		}),
		repos:      col.c.merger.Merge(col.req.Repositories, desc.Repositories),
		path:       map[artifact.Key]bool{d.Coordinate.Key(): true},
		pathCoords: []artifact.Coordinate{d.Coordinate},
		exclusions: d.Exclusions,
	}
	return col.drain(root)
}

// drain runs the iterative depth-first traversal from the given frame. An
// explicit stack bounds memory on pathological graphs; recursion depth never
// exceeds one descriptor here.
func (col *collection) drain(root *frame) error {
	stack := []*frame{root}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.idx >= len(f.deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := f.deps[f.idx]
		f.idx++

		child, err := col.processDependency(f, d)
		if err != nil {
			return err
		}
		if child != nil {
			stack = append(stack, child)
		}
	}
	return nil
}

// processDependency handles one child dependency of the frame's node,
// returning the frame for its own children when the subtree recurses. The
// only error returned is cancellation.
func (col *collection) processDependency(f *frame, d artifact.Dependency) (*frame, error) {
	var bits int
	var pre map[string]any
	if mgmt := f.mgr.Manage(d); mgmt != nil {
		d = col.applyManagement(d, mgmt, &bits, &pre)
	}

	key := d.Coordinate.Key()
	if f.path[key] {
		// Cycle: terminate with a childless leaf, no descriptor read.
		leaf := &graph.Node{
			Dependency:   &d,
			Repositories: f.repos,
			ManagedBits:  bits,
			Premanaged:   pre,
		}
		f.node.Children = append(f.node.Children, leaf)
		cycle := append(slices.Clone(f.pathCoords), d.Coordinate)
		col.result.Cycles = append(col.result.Cycles, Cycle(cycle))
		observability.Collection().OnCycle(col.ctx, d.Coordinate.String())
		return nil, nil
	}

	if artifact.MatchesAny(f.exclusions, d.Coordinate) {
		return nil, nil
	}

	// Frames only ever sit below a declared root, so the depth>0 filters
	// apply unconditionally here.
	if d.IsOptional() || col.session.ignoresScope(d.Scope) {
		return nil, nil
	}

	vres, err := col.resolveVersions(d, f.repos)
	if err != nil {
		col.record(err)
		return nil, nil
	}
	d = d.WithVersion(vres.Selected())

	if err := col.cancelled(); err != nil {
		return nil, err
	}

	d, desc, err := col.readFollowingRelocations(d, f.mgr, f.repos, &bits, &pre)
	if err != nil {
		col.record(err)
		return nil, nil
	}

	node := &graph.Node{
		Dependency:   &d,
		Versions:     vres.Versions,
		Repositories: f.repos,
		ManagedBits:  bits,
		Premanaged:   pre,
	}
	f.node.Children = append(f.node.Children, node)

	if len(desc.Dependencies) == 0 {
		return nil, nil
	}

	path := maps.Clone(f.path)
	path[key] = true

	return &frame{
		node: node,
		deps: desc.Dependencies,
		mgr: f.mgr.DeriveFor(manager.Context{
			Dependency:          &d,
			ManagedDependencies: desc.ManagedDependencies,
		}),
		repos:      col.c.merger.Merge(f.repos, desc.Repositories),
		path:       path,
		pathCoords: append(slices.Clone(f.pathCoords), d.Coordinate),
		exclusions: artifact.MergeExclusions(f.exclusions, d.Exclusions),
	}, nil
}

// applyManagement rewrites d per the management record, accumulating managed
// bits and, in verbose mode, the premanaged values. Premanaged entries are
// written only on the first override of each aspect so relocation re-managing
// cannot clobber the original values.
func (col *collection) applyManagement(d artifact.Dependency, mgmt *manager.Management, bits *int, pre *map[string]any) artifact.Dependency {
	remember := func(key string, value any) {
		if !col.session.VerboseManagement {
			return
		}
		if *pre == nil {
			*pre = make(map[string]any)
		}
		if _, done := (*pre)[key]; !done {
			(*pre)[key] = value
		}
	}

	if mgmt.Version != nil && *mgmt.Version != d.Coordinate.Version {
		remember(graph.PremanagedVersion, d.Coordinate.Version)
		*bits |= graph.ManagedVersion
		d = d.WithVersion(*mgmt.Version)
	}
	if mgmt.Scope != nil && *mgmt.Scope != d.Scope {
		remember(graph.PremanagedScope, d.Scope)
		*bits |= graph.ManagedScope
		d = d.WithScope(*mgmt.Scope)
	}
	if mgmt.Optional != nil && (d.Optional == nil || *d.Optional != *mgmt.Optional) {
		remember(graph.PremanagedOptional, d.Optional)
		*bits |= graph.ManagedOptional
		d = d.WithOptional(*mgmt.Optional)
	}
	if len(mgmt.Properties) > 0 {
		remember(graph.PremanagedProperties, maps.Clone(d.Coordinate.Properties))
		*bits |= graph.ManagedProperties
		d = d.WithCoordinate(d.Coordinate.WithProperties(mgmt.Properties))
	}
	if mgmt.Exclusions != nil {
		remember(graph.PremanagedExclusions, slices.Clone(d.Exclusions))
		*bits |= graph.ManagedExclusions
		d = d.WithExclusions(mgmt.Exclusions)
	}
	return d
}

// readFollowingRelocations reads the descriptor for d's coordinate and
// follows any relocation chain, re-managing at each hop. The requester's
// scope, optionality, and exclusions survive relocation; only the coordinate
// is replaced. Chains that revisit a coordinate or exceed the hop limit fail
// with RELOCATION_LOOP.
func (col *collection) readFollowingRelocations(d artifact.Dependency, mgr manager.Manager, repos []repository.Remote, bits *int, pre *map[string]any) (artifact.Dependency, *descriptor.Descriptor, error) {
	origin := d.Coordinate
	seen := map[string]bool{origin.String(): true}

	desc, err := col.read(d.Coordinate, repos)
	if err != nil {
		return d, nil, err
	}

	for hops := 0; desc.Relocation != nil; hops++ {
		if hops >= maxRelocationHops {
			return d, nil, errors.New(errors.ErrCodeRelocationLoop,
				"relocation chain from %s exceeds %d hops", origin, maxRelocationHops)
		}

		target := *desc.Relocation
		if target.Version == "" {
			target.Version = d.Coordinate.Version
		}
		if seen[target.String()] {
			return d, nil, errors.New(errors.ErrCodeRelocationLoop,
				"relocation chain from %s revisits %s", origin, target)
		}
		seen[target.String()] = true

		d = d.WithCoordinate(target)
		if mgmt := mgr.Manage(d); mgmt != nil {
			d = col.applyManagement(d, mgmt, bits, pre)
			seen[d.Coordinate.String()] = true
		}

		desc, err = col.read(d.Coordinate, repos)
		if err != nil {
			return d, nil, err
		}
	}
	return d, desc, nil
}

// read returns the descriptor for the coordinate, consulting the per-call
// cache first. Failed reads are cached too, so a coordinate's failure is
// reported at most once per collection.
func (col *collection) read(coord artifact.Coordinate, repos []repository.Remote) (*descriptor.Descriptor, error) {
	id := coord.String()
	if o, ok := col.outcomes[id]; ok {
		observability.Collection().OnDescriptorRead(col.ctx, id, true, 0, o.err)
		return o.desc, o.err
	}

	start := time.Now()
	res, err := col.c.reader.Read(col.ctx, &descriptor.Request{
		Coordinate:   coord,
		Repositories: repos,
		Context:      col.req.Context,
	})
	observability.Collection().OnDescriptorRead(col.ctx, id, false, time.Since(start), err)

	if err != nil && col.session.MissingDescriptorsAsEmpty &&
		errors.Is(err, errors.ErrCodeDescriptorMissing) {
		res = &descriptor.Result{Descriptor: &descriptor.Descriptor{Coordinate: coord}}
		err = nil
	}

	o := &readOutcome{}
	if err != nil {
		col.descriptorFailed = true
		o.err = errors.Wrap(errors.ErrCodeDescriptorError, err,
			"failed to read descriptor for %s", coord)
	} else if o.desc = res.Descriptor; o.desc == nil {
		// Readers may signal "nothing declared" with a nil descriptor.
		o.desc = &descriptor.Descriptor{Coordinate: coord}
	}
	col.outcomes[id] = o
	return o.desc, o.err
}

// resolveVersions expands d's version specification against the given
// repositories. An empty expansion is an error.
func (col *collection) resolveVersions(d artifact.Dependency, repos []repository.Remote) (*version.Result, error) {
	vres, err := col.c.versions.Resolve(col.ctx, &version.Request{
		Coordinate:   d.Coordinate,
		Repositories: repos,
		Context:      col.req.Context,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVersionResolution, err,
			"failed to resolve version %q of %s", d.Coordinate.Version, d.Coordinate.Key())
	}
	if len(vres.Versions) == 0 {
		return nil, errors.New(errors.ErrCodeVersionResolution,
			"no versions satisfy %q for %s", d.Coordinate.Version, d.Coordinate.Key())
	}
	return vres, nil
}

func (col *collection) record(err error) {
	if err == nil || col.recorded[err] {
		return
	}
	col.recorded[err] = true
	col.result.Exceptions = append(col.result.Exceptions, err)
}

func (col *collection) cancelled() error {
	if err := col.ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCollectionCancelled, err, "collection cancelled")
	}
	return nil
}
