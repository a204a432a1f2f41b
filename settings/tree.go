package settings

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
)

// ModulesKey is the key of the root-level list setting naming the loaded modules.
const ModulesKey = "modules"

// Setting is a leaf configuration entry.
type Setting struct {
	key    string
	typ    Type
	value  any
	parent *Group
	tree   *Tree
}

// Key returns the setting's key within its group.
func (s *Setting) Key() string {
	return s.key
}

// Type returns the declared type of the setting.
func (s *Setting) Type() Type {
	return s.typ
}

// PathID returns the dotted path from the root group to this setting.
func (s *Setting) PathID() string {
	return joinPath(s.parent.path(), s.key)
}

// Value returns the current value. Its Go type matches Type().
func (s *Setting) Value() any {
	if s.tree != nil {
		s.tree.mu.RLock()
		defer s.tree.mu.RUnlock()
	}
	return s.value
}

func (s *Setting) String() string {
	return fmt.Sprintf("Setting(%s: %s)", s.PathID(), s.typ)
}

// Group is an internal node of the settings tree.
type Group struct {
	key      string
	parent   *Group
	settings []*Setting
	children []*Group
}

// NewGroup creates an empty group. Pass an empty key for the root group.
func NewGroup(key string) *Group {
	return &Group{key: key}
}

// Key returns the group's key within its parent.
func (g *Group) Key() string {
	return g.key
}

// PathID returns the dotted path from the root group. The root's path is empty.
func (g *Group) PathID() string {
	return g.path()
}

func (g *Group) path() string {
	if g == nil || g.parent == nil {
		return ""
	}
	return joinPath(g.parent.path(), g.key)
}

// AddSetting declares a new leaf setting under g.
func (g *Group) AddSetting(key string, typ Type, value any) (*Setting, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if g.has(key) {
		return nil, fmt.Errorf("duplicate key %q in group %q", key, g.path())
	}
	if err := typ.Check(value); err != nil {
		return nil, fmt.Errorf("setting %q: %w", joinPath(g.path(), key), err)
	}

	s := &Setting{key: key, typ: typ, value: value, parent: g}
	g.settings = append(g.settings, s)
	return s, nil
}

// AddGroup declares a new child group under g.
func (g *Group) AddGroup(key string) (*Group, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if g.has(key) {
		return nil, fmt.Errorf("duplicate key %q in group %q", key, g.path())
	}

	child := &Group{key: key, parent: g}
	g.children = append(g.children, child)
	return child, nil
}

// Get returns the direct leaf setting with the given key.
func (g *Group) Get(key string) (*Setting, bool) {
	for _, s := range g.settings {
		if s.key == key {
			return s, true
		}
	}
	return nil, false
}

// Group returns the direct child group with the given key.
func (g *Group) Group(key string) (*Group, bool) {
	for _, c := range g.children {
		if c.key == key {
			return c, true
		}
	}
	return nil, false
}

// Settings returns the settings declared directly on g.
func (g *Group) Settings() []*Setting {
	return slices.Clone(g.settings)
}

// Children returns the direct child groups of g.
func (g *Group) Children() []*Group {
	return slices.Clone(g.children)
}

// Walk returns every leaf setting below g in tree order: a group's own settings first,
// then each child group recursively. Groups themselves are never returned.
func (g *Group) Walk() []*Setting {
	var leaves []*Setting
	g.walk(func(s *Setting) {
		leaves = append(leaves, s)
	})
	return leaves
}

func (g *Group) walk(fn func(*Setting)) {
	for _, s := range g.settings {
		fn(s)
	}
	for _, c := range g.children {
		c.walk(fn)
	}
}

func (g *Group) has(key string) bool {
	_, isSetting := g.Get(key)
	_, isGroup := g.Group(key)
	return isSetting || isGroup
}

// Tree is a settings hierarchy whose values may be read and replaced concurrently.
type Tree struct {
	root      *Group
	index     map[string]*Setting
	persister Persister
	mu        sync.RWMutex
}

// TreeOption defines a function signature for Tree's functional options.
type TreeOption func(*Tree)

// WithPersister makes Tree write every applied change through p.
func WithPersister(p Persister) TreeOption {
	return func(tree *Tree) {
		tree.persister = p
	}
}

// NewTree freezes the given root group into a Tree.
// Groups and settings must not be added to root afterwards.
func NewTree(root *Group, options ...TreeOption) *Tree {
	tree := &Tree{
		root:  root,
		index: map[string]*Setting{},
	}
	for _, opt := range options {
		opt(tree)
	}

	root.walk(func(s *Setting) {
		s.tree = tree
		tree.index[s.PathID()] = s
	})

	return tree
}

// Root returns the root group.
func (t *Tree) Root() *Group {
	return t.root
}

// Lookup returns the setting addressed by pathID.
func (t *Tree) Lookup(pathID string) (*Setting, bool) {
	s, ok := t.index[pathID]
	return s, ok
}

// Modules returns the ids listed in the root-level modules setting.
func (t *Tree) Modules() []string {
	s, ok := t.root.Get(ModulesKey)
	if !ok || s.Type() != TypeStringList {
		return nil
	}
	return slices.Clone(s.Value().([]string))
}

// Load replaces default values with those held by the configured Persister.
// Persisted entries unknown to the tree, or stored with another type, are skipped.
func (t *Tree) Load(ctx context.Context) error {
	if t.persister == nil {
		return nil
	}

	records, err := t.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted settings: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, record := range records {
		s, ok := t.index[record.PathID]
		if !ok {
			logger.Debugf("Ignoring persisted value for unknown setting %s", record.PathID)
			continue
		}
		if s.typ != record.Type {
			logger.Warnf("Ignoring persisted value for %s: stored as %s, declared as %s", record.PathID, record.Type, s.typ)
			continue
		}

		value, err := record.Type.Parse(record.Value)
		if err != nil {
			logger.Warnf("Ignoring unparsable persisted value for %s: %+v", record.PathID, err)
			continue
		}
		s.value = value
	}

	return nil
}

// Apply validates every change and then commits all of them, or none.
// Keys are path ids; values must be of the Go type backing the setting's Type.
func (t *Tree) Apply(ctx context.Context, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	records := make([]Record, 0, len(changes))
	for pathID, value := range changes {
		s, ok := t.index[pathID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, pathID)
		}

		literal, err := s.typ.Format(value)
		if err != nil {
			return fmt.Errorf("setting %s: %w", pathID, err)
		}
		records = append(records, Record{PathID: pathID, Type: s.typ, Value: literal})
	}
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.PathID, b.PathID)
	})

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.persister != nil {
		if err := t.persister.Save(ctx, records); err != nil {
			return fmt.Errorf("failed to persist settings: %w", err)
		}
	}

	for pathID, value := range changes {
		t.index[pathID].value = value
	}

	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, ".") {
		return fmt.Errorf("key %q must not contain '.'", key)
	}
	return nil
}
