package reconcile

import (
	"testing"

	"github.com/emucfg/emucfg/internal/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(name, value string, options ...string) *element.Slot {
	s := &element.Slot{Base: element.Base{Name: name}, Value: value}
	for _, o := range options {
		s.Options = append(s.Options, element.SlotOption{Name: o, DevName: o})
	}
	return s
}

func device(name string, exts ...string) *element.Device {
	return &element.Device{Base: element.Base{Name: name}, Instance: name, Extensions: exts}
}

// round runs a complete reset/add/commit cycle.
func round(t *testing.T, s *Session, origin string, elements ...element.Element) ([]MergedUnit, bool) {
	t.Helper()
	require.NoError(t, s.Reset(origin))
	for _, el := range elements {
		_, err := s.Add(el)
		require.NoError(t, err)
	}
	require.NoError(t, s.Merge())
	units, changed, err := s.Commit()
	require.NoError(t, err)
	return units, changed
}

func summary(units []MergedUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Diff.String() + ":" + u.Name()
	}
	return out
}

func TestFirstRoundIsCreated(t *testing.T) {
	s := NewSession("apple2e")
	units, changed := round(t, s, "",
		slot("sl6", "diskii", "diskii", "ssc"),
		device("floppydisk1", "dsk"))

	assert.True(t, changed)
	assert.Equal(t, []string{"created:sl6", "created:floppydisk1"}, summary(units))
	assert.Equal(t, 2, s.Baseline().Len())
	assert.Equal(t, StateIdle, s.State())
}

func TestIdempotentRound(t *testing.T) {
	s := NewSession("apple2e")
	round(t, s, "", slot("sl6", "diskii", "diskii", "ssc"), device("floppydisk1", "dsk"))

	units, changed := round(t, s, "", slot("sl6", "diskii", "diskii", "ssc"), device("floppydisk1", "dsk"))
	assert.False(t, changed)
	assert.Equal(t, []string{"unchanged:sl6", "unchanged:floppydisk1"}, summary(units))
	for _, u := range units {
		assert.NotNil(t, u.Old)
		assert.NotNil(t, u.New)
	}
}

func TestValueCarriedAcrossRounds(t *testing.T) {
	s := NewSession("apple2e")
	round(t, s, "", slot("sl6", "ssc", "diskii", "ssc"))

	// the new extraction starts from the default again
	units, changed := round(t, s, "", slot("sl6", "diskii", "diskii", "ssc"))
	assert.False(t, changed)
	assert.Equal(t, "ssc", units[0].New.(*element.Slot).Value)
}

func TestChangedOptions(t *testing.T) {
	s := NewSession("apple2e")
	round(t, s, "", slot("sl6", "diskii", "diskii", "ssc"))

	units, changed := round(t, s, "", slot("sl6", "diskii", "diskii", "ssc", "mouse"))
	assert.True(t, changed)
	assert.Equal(t, []string{"changed:sl6"}, summary(units))
}

func TestRenameDetection(t *testing.T) {
	tests := []struct {
		name    string
		oldName string
		newName string
	}{
		{name: "strip trailing one", oldName: "cartridge", newName: "cartridge1"},
		{name: "append trailing one", oldName: "cartridge1", newName: "cartridge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("a2600")
			round(t, s, "", device(tt.oldName, "bin"))

			units, changed := round(t, s, "", device(tt.newName, "bin"))
			assert.False(t, changed)
			require.Len(t, units, 1)
			assert.Equal(t, Unchanged, units[0].Diff)
			assert.Equal(t, tt.oldName, units[0].New.Previous())
			assert.Equal(t, tt.oldName, units[0].Old.ElementName())
		})
	}
}

func TestRenameCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "cartridge1", want: "cartridge", ok: true},
		{in: "cartridge", want: "cartridge1", ok: true},
		{in: "sl1", want: "sl", ok: true},
		{in: "port11", ok: false},
		{in: "port2", ok: false},
		{in: "A1", want: "", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := renameCandidate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestKindsNeverCrossMerge(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", slot("port", "a", "a", "b"))

	units, changed := round(t, s, "", device("port", "bin"))
	assert.True(t, changed)
	assert.Equal(t, []string{"deleted:port", "added:port"}, summary(units))
}

func TestDeletionOrdering(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", device("a", "x"), device("b", "x"), device("c", "x"))

	units, changed := round(t, s, "", device("a", "x"), device("c", "x"))
	assert.True(t, changed)
	assert.Equal(t, []string{"unchanged:a", "deleted:b", "unchanged:c"}, summary(units))
	assert.Nil(t, units[1].New)
}

func TestDeletionOrderingAtFront(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", device("a", "x"), device("b", "x"), device("c", "x"), device("d", "x"))

	units, _ := round(t, s, "", device("c", "x"), device("new", "y"))
	assert.Equal(t, []string{"deleted:a", "deleted:b", "unchanged:c", "deleted:d", "added:new"}, summary(units))
}

func TestAddedElementsDependOnAnchor(t *testing.T) {
	s := NewSession("apple2e")
	round(t, s, "", slot("sl6", "diskii", "diskii", "ssc"))

	require.NoError(t, s.Reset("sl6"))
	require.NoError(t, s.Select("sl6", "ssc"))
	_, err := s.Add(slot("sl6", "diskii", "diskii", "ssc"))
	require.NoError(t, err)
	_, err = s.Add(slot("sl6:ssc:rs232", "null_modem", "null_modem", "printer"))
	require.NoError(t, err)
	units, changed, err := s.Commit()
	require.NoError(t, err)

	assert.True(t, changed)
	require.Len(t, units, 2)
	assert.Equal(t, Changed, units[0].Diff)
	assert.Equal(t, "ssc", units[0].New.(*element.Slot).Value)
	assert.Equal(t, Added, units[1].Diff)
	require.Len(t, units[1].New.Deps(), 1)
	assert.Same(t, units[0].New, units[1].New.Deps()[0])
}

func TestDependencyRewiringFollowsRename(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", slot("exp", "a", "a", "b"))
	// y is added in a round triggered by exp, x in a round triggered by y
	round(t, s, "exp", slot("exp", "a", "a", "b"), slot("y", "p", "p", "q"))
	units, _ := round(t, s, "y", slot("exp", "a", "a", "b"), slot("y", "p", "p", "q"), device("x", "bin"))
	require.Equal(t, Added, units[2].Diff)

	oldY := units[1].New
	oldX := units[2].New
	require.Equal(t, []element.Element{oldY}, oldX.Deps())

	units, _ = round(t, s, "", slot("exp", "a", "a", "b"), slot("y1", "p", "p", "q"), device("x", "bin"))
	assert.Equal(t, []string{"unchanged:exp", "unchanged:y1", "unchanged:x"}, summary(units))

	newY := units[1].New
	newX := units[2].New
	assert.Equal(t, "y", newY.Previous())
	require.Len(t, newX.Deps(), 1)
	assert.Same(t, newY, newX.Deps()[0])
	assert.NotSame(t, oldY, newX.Deps()[0])
}

func TestUnresolvableDependencyIsDropped(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", slot("exp", "a", "a", "b"))
	round(t, s, "exp", slot("exp", "a", "a", "b"), device("x", "bin"))

	units, _ := round(t, s, "", device("x", "bin"))
	assert.Equal(t, []string{"deleted:exp", "unchanged:x"}, summary(units))
	assert.Empty(t, units[1].New.Deps())
}

func TestRollbackRestoresBaseline(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", device("a", "x"), device("b", "x"))
	before := s.Baseline()

	require.NoError(t, s.Reset("a"))
	_, err := s.Add(device("a", "y"))
	require.NoError(t, err)
	require.NoError(t, s.Rollback())

	assert.Same(t, before, s.Baseline())
	assert.Equal(t, StateIdle, s.State())

	// the restored baseline still drives matching
	units, changed := round(t, s, "", device("a", "x"), device("b", "x"))
	assert.False(t, changed)
	assert.Equal(t, []string{"unchanged:a", "unchanged:b"}, summary(units))
}

func TestRollbackOfFirstRound(t *testing.T) {
	s := NewSession("m")
	require.NoError(t, s.Reset(""))
	_, err := s.Add(device("a", "x"))
	require.NoError(t, err)
	require.NoError(t, s.Rollback())
	assert.Nil(t, s.Baseline())

	units, _ := round(t, s, "", device("a", "x"))
	assert.Equal(t, []string{"created:a"}, summary(units))
}

func TestSequenceErrors(t *testing.T) {
	s := NewSession("m")

	_, err := s.Add(device("a", "x"))
	assert.ErrorIs(t, err, ErrSequence)
	assert.ErrorIs(t, s.Merge(), ErrSequence)
	assert.ErrorIs(t, s.Rollback(), ErrSequence)
	_, _, err = s.Commit()
	assert.ErrorIs(t, err, ErrSequence)

	require.NoError(t, s.Reset(""))
	assert.ErrorIs(t, s.Reset(""), ErrSequence)

	require.NoError(t, s.Merge())
	_, err = s.Add(device("a", "x"))
	assert.ErrorIs(t, err, ErrSequence)
	assert.ErrorIs(t, s.Merge(), ErrSequence)
}

func TestDuplicateNameInRound(t *testing.T) {
	s := NewSession("m")
	require.NoError(t, s.Reset(""))
	_, err := s.Add(device("a", "x"))
	require.NoError(t, err)
	_, err = s.Add(device("a", "x"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSequence)
}

func TestCommitMergesImplicitly(t *testing.T) {
	s := NewSession("m")
	round(t, s, "", device("a", "x"), device("b", "x"))

	require.NoError(t, s.Reset(""))
	_, err := s.Add(device("a", "x"))
	require.NoError(t, err)
	units, changed, err := s.Commit()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"unchanged:a", "deleted:b"}, summary(units))
}

func TestPostCommitHook(t *testing.T) {
	var got *element.List
	s := NewSession("m", WithPostCommit(func(l *element.List) { got = l }))
	round(t, s, "", device("a", "x"))
	assert.Same(t, s.Baseline(), got)
}

func TestDifferenceString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "difference(42)", Difference(42).String())
	assert.Equal(t, "merged", StateMerged.String())
}

func TestSelectAppliesToNewElements(t *testing.T) {
	s := NewSession("m")
	require.NoError(t, s.Reset(""))
	require.NoError(t, s.Select("exp", "b"))
	_, err := s.Add(slot("exp", "a", "a", "b"))
	require.NoError(t, err)
	units, _, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, Created, units[0].Diff)
	assert.Equal(t, "b", units[0].New.(*element.Slot).Value)

	// an invalid choice leaves the carried value alone
	require.NoError(t, s.Reset("exp"))
	require.NoError(t, s.Select("exp", "zzz"))
	_, err = s.Add(slot("exp", "a", "a", "b"))
	require.NoError(t, err)
	units, changed, err := s.Commit()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "b", units[0].New.(*element.Slot).Value)

	assert.ErrorIs(t, s.Select("exp", "a"), ErrSequence)
}
