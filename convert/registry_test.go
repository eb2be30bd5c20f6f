package convert

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type team struct {
	Number int
	Name   string
}

type teamDict struct {
	Key  string
	Name string
}

func teamV3(t team) teamDict {
	return teamDict{Key: "frc" + strconv.Itoa(t.Number), Name: t.Name}
}

func newTeamRegistry() *Registry[team, teamDict] {
	return NewRegistry[team, teamDict]("team").Register(APIv3, 4, Map(teamV3))
}

func TestRegistry_ConvertList(t *testing.T) {
	r := newTeamRegistry()

	got, err := r.ConvertList(APIv3, []team{{254, "Cheesy Poofs"}, {1114, "Simbotics"}})
	if err != nil {
		t.Fatalf("ConvertList() error = %v", err)
	}

	want := []teamDict{{"frc254", "Cheesy Poofs"}, {"frc1114", "Simbotics"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ConvertList() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_ConvertListEmpty(t *testing.T) {
	r := newTeamRegistry()

	got, err := r.ConvertList(APIv3, nil)
	if err != nil {
		t.Fatalf("ConvertList() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ConvertList(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestRegistry_ConvertOne(t *testing.T) {
	r := newTeamRegistry()

	got, err := r.ConvertOne(APIv3, &team{604, "Quixilver"})
	if err != nil {
		t.Fatalf("ConvertOne() error = %v", err)
	}
	if got == nil || *got != (teamDict{"frc604", "Quixilver"}) {
		t.Errorf("ConvertOne() = %#v", got)
	}
}

func TestRegistry_ConvertOneAbsentSkipsConverter(t *testing.T) {
	called := false
	r := NewRegistry[team, teamDict]("team").Register(APIv3, 0, func(models []team) []teamDict {
		called = true
		return nil
	})

	got, err := r.ConvertOne(APIv3, nil)
	if err != nil {
		t.Fatalf("ConvertOne(nil) error = %v", err)
	}
	if got != nil {
		t.Errorf("ConvertOne(nil) = %#v, want nil", got)
	}
	if called {
		t.Error("converter should not run for an absent model")
	}
}

func TestRegistry_UnsupportedVersion(t *testing.T) {
	r := newTeamRegistry()

	if _, err := r.ConvertList(APIMajorVersion(2), []team{{1, "a"}}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("ConvertList() error = %v, want ErrUnsupportedVersion", err)
	}
	if _, err := r.ConvertOne(APIMajorVersion(2), nil); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("ConvertOne() error = %v, want ErrUnsupportedVersion", err)
	}
	if _, err := r.Subversion(APIMajorVersion(2)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Subversion() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestRegistry_LengthMismatch(t *testing.T) {
	r := NewRegistry[team, teamDict]("team").Register(APIv3, 0, func(models []team) []teamDict {
		return nil
	})

	if _, err := r.ConvertList(APIv3, []team{{1, "a"}}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("ConvertList() error = %v, want ErrLengthMismatch", err)
	}
}

func TestRegistry_RegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{
			name: "nil converter",
			fn: func() {
				NewRegistry[team, teamDict]("team").Register(APIv3, 0, nil)
			},
		},
		{
			name: "duplicate version",
			fn: func() {
				newTeamRegistry().Register(APIv3, 1, Map(teamV3))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestRegistry_SubversionAndVersions(t *testing.T) {
	r := newTeamRegistry().Register(APIMajorVersion(4), 0, Map(teamV3))

	sub, err := r.Subversion(APIv3)
	if err != nil || sub != 4 {
		t.Errorf("Subversion(v3) = %d, %v; want 4", sub, err)
	}

	if diff := cmp.Diff([]APIMajorVersion{APIv3, 4}, r.Versions()); diff != "" {
		t.Errorf("Versions() mismatch (-want +got):\n%s", diff)
	}
}
