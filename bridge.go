package dashboard

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"slices"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/oklahomer/go-sarah-dashboard/settings"
)

// GeneralSectionID is the id of the section holding settings that belong to no module.
const GeneralSectionID = "general"

// Manifest describes a loaded module.
type Manifest struct {
	ID string `json:"id" yaml:"id"`

	Name string `json:"name" yaml:"name"`

	// Description is Markdown.
	Description string `json:"description" yaml:"description"`
}

// ModuleRegistry resolves a module id to its Manifest.
type ModuleRegistry interface {
	Module(id string) (*Manifest, bool)
}

// Manifests is a ModuleRegistry keyed by module id.
type Manifests map[string]*Manifest

var _ ModuleRegistry = Manifests(nil)

// Module returns the manifest registered under id.
func (m Manifests) Module(id string) (*Manifest, bool) {
	manifest, ok := m[id]
	return manifest, ok
}

// ModuleSection groups the settings shown together on the settings page.
type ModuleSection struct {
	ID          string
	Name        string
	Description template.HTML
	Settings    []*SettingView
}

// SettingView is a setting as the settings form renders it.
type SettingView struct {
	// ID is the setting's path id and the name of its form field.
	ID string

	HTMLType string

	// HTMLValue is a bool for checkboxes and a string for every other input.
	HTMLValue any
}

// Bridge converts between a settings.Tree and the settings form.
type Bridge struct {
	tree     *settings.Tree
	registry ModuleRegistry
}

// NewBridge creates a Bridge over tree. Module names and descriptions come from registry.
func NewBridge(tree *settings.Tree, registry ModuleRegistry) *Bridge {
	if registry == nil {
		registry = Manifests{}
	}
	return &Bridge{
		tree:     tree,
		registry: registry,
	}
}

// ModuleSections returns the general section followed by one section per
// top-level group whose key is a loaded module.
func (b *Bridge) ModuleSections() []*ModuleSection {
	root := b.tree.Root()
	modules := b.tree.Modules()

	general := &ModuleSection{
		ID:          GeneralSectionID,
		Name:        "General",
		Description: renderMarkdown("General settings for the bot"),
	}
	general.Settings = appendViews(general.Settings, root.Settings())

	sections := []*ModuleSection{general}
	for _, group := range root.Children() {
		if !slices.Contains(modules, group.Key()) {
			logger.Infof("Found a top-level group that isn't a module, adding it as a general setting: %s", group.Key())
			general.Settings = appendViews(general.Settings, group.Walk())
			continue
		}

		section := &ModuleSection{
			ID:   group.Key(),
			Name: group.Key(),
		}
		if manifest, ok := b.registry.Module(group.Key()); ok {
			section.Name = manifest.Name
			section.Description = renderMarkdown(manifest.Description)
		} else {
			logger.Warnf("No manifest registered for module %s", group.Key())
		}
		section.Settings = appendViews(nil, group.Walk())
		sections = append(sections, section)
	}

	return sections
}

// Apply coerces the submitted fields and commits them to the tree in one step.
// Settings without a submitted field keep their value. When a field appears more
// than once, the last value wins: a checkbox follows a hidden "false" field with
// the same name. If any field fails to parse, nothing is committed and a
// *ValidationError is returned.
func (b *Bridge) Apply(ctx context.Context, form url.Values) error {
	changes := map[string]any{}
	for _, s := range b.tree.Root().Walk() {
		pathID := s.PathID()
		values := form[pathID]
		if len(values) == 0 {
			logger.Debugf("Setting was not submitted through form: %s", pathID)
			continue
		}

		field := values[len(values)-1]
		value, err := ParseField(s.Type(), field, s.Value())
		if err != nil {
			return &ValidationError{PathID: pathID, Value: field, Err: err}
		}
		changes[pathID] = value
	}

	return b.tree.Apply(ctx, changes)
}

func appendViews(views []*SettingView, leaves []*settings.Setting) []*SettingView {
	for _, s := range leaves {
		value := s.Value()
		if value == nil {
			logger.Errorf("Setting has no value, skipping: %s", s.PathID())
			continue
		}

		htmlValue, err := HTMLValue(s.Type(), value)
		if err != nil {
			logger.Errorf("Failed to render setting %s, skipping: %+v", s.PathID(), err)
			continue
		}

		views = append(views, &SettingView{
			ID:        s.PathID(),
			HTMLType:  HTMLType(s.Type()),
			HTMLValue: htmlValue,
		})
	}
	return views
}

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func renderMarkdown(source string) template.HTML {
	if source == "" {
		return ""
	}

	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		logger.Warnf("Failed to render description as Markdown: %+v", err)
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}
