package settings

import (
	"context"
	"errors"
	"testing"
)

// mockPersister implements Persister for testing.
type mockPersister struct {
	loadFunc func(ctx context.Context) ([]Record, error)
	saveFunc func(ctx context.Context, records []Record) error
}

func (m *mockPersister) Load(ctx context.Context) ([]Record, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return nil, nil
}

func (m *mockPersister) Save(ctx context.Context, records []Record) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, records)
	}
	return nil
}

func newTestTree(t *testing.T, options ...TreeOption) *Tree {
	t.Helper()

	root, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	return NewTree(root, options...)
}

func TestGroup_AddSetting(t *testing.T) {
	root := NewGroup("")

	if _, err := root.AddSetting("", TypeString, "x"); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Expected ErrEmptyKey, got %+v", err)
	}

	if _, err := root.AddSetting("port", TypeInteger, 8080); err == nil {
		t.Error("Expected a plain int to be rejected")
	}

	if _, err := root.AddSetting("port", TypeInteger, int64(8080)); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if _, err := root.AddGroup("port"); err == nil {
		t.Error("Expected a group to collide with a setting of the same key")
	}

	group, err := root.AddGroup("web")
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	s, err := group.AddSetting("host", TypeString, "localhost")
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if s.PathID() != "web.host" {
		t.Errorf("Expected path id %q, got %q", "web.host", s.PathID())
	}

	if group.PathID() != "web" {
		t.Errorf("Expected group path %q, got %q", "web", group.PathID())
	}
}

func TestTree_Lookup(t *testing.T) {
	tree := newTestTree(t)

	s, ok := tree.Lookup("greeter.nested.enabled")
	if !ok {
		t.Fatal("Expected setting to be found")
	}

	if s.Value() != true {
		t.Errorf("Expected true, got %v", s.Value())
	}

	if _, ok := tree.Lookup("greeter.nested"); ok {
		t.Error("Expected groups not to be addressable as settings")
	}
}

func TestTree_Modules(t *testing.T) {
	tree := newTestTree(t)

	modules := tree.Modules()
	if len(modules) != 1 || modules[0] != "greeter" {
		t.Errorf("Unexpected modules: %v", modules)
	}

	empty := NewTree(NewGroup(""))
	if empty.Modules() != nil {
		t.Errorf("Expected no modules, got %v", empty.Modules())
	}
}

func TestTree_Apply(t *testing.T) {
	t.Run("commits every change", func(t *testing.T) {
		var saved []Record
		tree := newTestTree(t, WithPersister(&mockPersister{
			saveFunc: func(_ context.Context, records []Record) error {
				saved = records
				return nil
			},
		}))

		err := tree.Apply(context.Background(), map[string]any{
			"greeter.volume": int64(3),
			"debug":          true,
		})
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		volume, _ := tree.Lookup("greeter.volume")
		if volume.Value() != int64(3) {
			t.Errorf("Expected volume 3, got %v", volume.Value())
		}

		if len(saved) != 2 || saved[0].PathID != "debug" || saved[1].Value != "3" {
			t.Errorf("Unexpected persisted records: %+v", saved)
		}
	})

	t.Run("unknown path commits nothing", func(t *testing.T) {
		tree := newTestTree(t)

		err := tree.Apply(context.Background(), map[string]any{
			"greeter.volume": int64(3),
			"greeter.nope":   "x",
		})
		if !errors.Is(err, ErrUnknownSetting) {
			t.Fatalf("Expected ErrUnknownSetting, got %+v", err)
		}

		volume, _ := tree.Lookup("greeter.volume")
		if volume.Value() != int64(11) {
			t.Errorf("Expected volume to stay 11, got %v", volume.Value())
		}
	})

	t.Run("wrong value type commits nothing", func(t *testing.T) {
		tree := newTestTree(t)

		err := tree.Apply(context.Background(), map[string]any{
			"debug":          true,
			"greeter.volume": "loud",
		})
		if err == nil {
			t.Fatal("Expected an error")
		}

		debug, _ := tree.Lookup("debug")
		if debug.Value() != false {
			t.Errorf("Expected debug to stay false, got %v", debug.Value())
		}
	})

	t.Run("persist failure commits nothing", func(t *testing.T) {
		tree := newTestTree(t, WithPersister(&mockPersister{
			saveFunc: func(_ context.Context, _ []Record) error {
				return errors.New("disk full")
			},
		}))

		err := tree.Apply(context.Background(), map[string]any{"misc.motd": "bye"})
		if err == nil {
			t.Fatal("Expected an error")
		}

		motd, _ := tree.Lookup("misc.motd")
		if motd.Value() != "welcome" {
			t.Errorf("Expected motd to stay %q, got %v", "welcome", motd.Value())
		}
	})
}

func TestTree_Load(t *testing.T) {
	tree := newTestTree(t, WithPersister(&mockPersister{
		loadFunc: func(_ context.Context) ([]Record, error) {
			return []Record{
				{PathID: "greeter.volume", Type: TypeInteger, Value: "5"},
				{PathID: "greeter.greeting", Type: TypeInteger, Value: "1"},
				{PathID: "greeter.ratio", Type: TypeFloat, Value: "half"},
				{PathID: "removed.setting", Type: TypeString, Value: "x"},
			}, nil
		},
	}))

	if err := tree.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	expected := map[string]any{
		"greeter.volume":   int64(5),
		"greeter.greeting": "hello",
		"greeter.ratio":    0.5,
	}
	for pathID, value := range expected {
		s, _ := tree.Lookup(pathID)
		if s.Value() != value {
			t.Errorf("Expected %s to be %v, got %v", pathID, value, s.Value())
		}
	}

	failing := newTestTree(t, WithPersister(&mockPersister{
		loadFunc: func(_ context.Context) ([]Record, error) {
			return nil, errors.New("locked")
		},
	}))
	if err := failing.Load(context.Background()); err == nil {
		t.Error("Expected an error")
	}
}
