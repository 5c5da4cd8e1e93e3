package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlot(name, value string, options ...string) *Slot {
	s := &Slot{Base: Base{Name: name}, Value: value}
	for _, o := range options {
		s.Options = append(s.Options, SlotOption{Name: o, DevName: o})
	}
	return s
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bios", KindBios.String())
	assert.Equal(t, "ram", KindRam.String())
	assert.Equal(t, "slot", KindSlot.String())
	assert.Equal(t, "device", KindDevice.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestBiosSetValue(t *testing.T) {
	options := []Option{{Name: "v1", Default: true}, {Name: "v2"}}

	tests := []struct {
		name      string
		prev      Element
		options   []Option
		wantValue string
		unchanged bool
	}{
		{
			name:      "same options carries value",
			prev:      &Bios{Base: Base{Name: BiosName}, Options: options, Value: "v2"},
			options:   options,
			wantValue: "v2",
			unchanged: true,
		},
		{
			name:      "value no longer offered",
			prev:      &Bios{Base: Base{Name: BiosName}, Options: []Option{{Name: "v3"}}, Value: "v3"},
			options:   options,
			wantValue: "v1",
			unchanged: false,
		},
		{
			name:      "option set grew",
			prev:      &Bios{Base: Base{Name: BiosName}, Options: options[:1], Value: "v1"},
			options:   options,
			wantValue: "v1",
			unchanged: false,
		},
		{
			name:      "different kind is never merged",
			prev:      &Ram{Base: Base{Name: BiosName}, Options: options, Value: "v2"},
			options:   options,
			wantValue: "v1",
			unchanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bios{Base: Base{Name: BiosName}, Options: tt.options, Value: "v1"}
			assert.Equal(t, tt.unchanged, b.SetValue(tt.prev))
			assert.Equal(t, tt.wantValue, b.Value)
		})
	}
}

func TestSlotSetValue(t *testing.T) {
	prev := newSlot("exp", "fdc", "fdc", "ram")
	cur := newSlot("exp", "", "fdc", "ram")
	assert.True(t, cur.SetValue(prev))
	assert.Equal(t, "fdc", cur.Value)

	// empty selection is always valid
	prev = newSlot("exp", "", "fdc", "ram")
	cur = newSlot("exp", "fdc", "fdc", "ram")
	assert.True(t, cur.SetValue(prev))
	assert.Equal(t, "", cur.Value)

	prev = newSlot("exp", "midi", "midi", "ram")
	cur = newSlot("exp", "", "fdc", "ram")
	assert.False(t, cur.SetValue(prev))
	assert.Equal(t, "", cur.Value)
}

func TestDeviceSetValue(t *testing.T) {
	prev := &Device{Base: Base{Name: "cartridge"}, Extensions: []string{"bin", "rom"}, Value: "game.bin"}
	cur := &Device{Base: Base{Name: "cartridge"}, Extensions: []string{"bin", "rom"}}
	assert.True(t, cur.SetValue(prev))
	assert.Equal(t, "game.bin", cur.Value)

	cur = &Device{Base: Base{Name: "cartridge"}, Extensions: []string{"bin"}}
	assert.False(t, cur.SetValue(prev))
	assert.Equal(t, "game.bin", cur.Value)

	cur = &Device{Base: Base{Name: "cartridge"}, Extensions: []string{"bin", "rom"}, Compatible: true}
	assert.False(t, cur.SetValue(prev))
}

func TestDefaultValue(t *testing.T) {
	r := &Ram{Options: []Option{{Name: "16K"}, {Name: "32K", Default: true}}}
	assert.Equal(t, "32K", r.DefaultValue())

	b := &Bios{Options: []Option{{Name: "a"}, {Name: "b"}}}
	assert.Equal(t, "a", b.DefaultValue())

	s := newSlot("exp", "", "fdc", "ram")
	assert.Equal(t, "", s.DefaultValue())
	s.Options[1].Default = true
	assert.Equal(t, "ram", s.DefaultValue())
}

func TestCloneIsIndependent(t *testing.T) {
	s := newSlot("exp", "fdc", "fdc", "ram")
	c := s.Clone().(*Slot)
	c.Options[0].Name = "changed"
	c.Value = "ram"
	assert.Equal(t, "fdc", s.Options[0].Name)
	assert.Equal(t, "fdc", s.Value)
}

func TestList(t *testing.T) {
	l := NewList()
	require.NoError(t, l.Append(newSlot("a", "", "x", "y")))
	require.NoError(t, l.Append(&Device{Base: Base{Name: "b"}}))
	assert.Error(t, l.Append(newSlot("a", "", "x", "y")))

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, l.Position("b"))
	assert.Equal(t, -1, l.Position("missing"))

	el, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindSlot, el.Kind())

	idx := l.Index()
	delete(idx, "a")
	_, ok = l.Get("a")
	assert.True(t, ok, "Index must return a copy")

	var nilList *List
	assert.Equal(t, 0, nilList.Len())
	assert.Empty(t, nilList.Elements())
}

func TestArgs(t *testing.T) {
	l := NewList()
	require.NoError(t, l.Append(&Bios{
		Base:    Base{Name: BiosName},
		Options: []Option{{Name: "v1", Default: true}, {Name: "v2"}},
		Value:   "v2",
	}))
	require.NoError(t, l.Append(&Ram{
		Base:    Base{Name: RamName},
		Options: []Option{{Name: "16K", Default: true}, {Name: "32K"}},
		Value:   "16K",
	}))
	require.NoError(t, l.Append(newSlot("exp", "fdc", "fdc", "ram")))
	require.NoError(t, l.Append(&Device{Base: Base{Name: "harddisk1"}, Instance: "harddisk1", Value: "disk.chd"}))

	assert.Equal(t, []string{"-bios", "v2", "-exp", "fdc", "-harddisk1", "disk.chd"}, Args(l, nil))

	got := Args(l, map[string]string{"exp": "", "exp:fdc:0": "35dd", "ramsize": "32K"})
	assert.Equal(t, []string{"-bios", "v2", "-ramsize", "32K", "-harddisk1", "disk.chd", "-exp:fdc:0", "35dd"}, got)
}

func TestValues(t *testing.T) {
	l := NewList()
	require.NoError(t, l.Append(newSlot("exp", "fdc", "fdc", "ram")))
	require.NoError(t, l.Append(&Device{Base: Base{Name: "cart"}}))
	assert.Equal(t, map[string]string{"exp": "fdc"}, l.Values())
}

func TestSelect(t *testing.T) {
	s := newSlot("exp", "", "fdc", "ram")
	assert.True(t, Select(s, "fdc"))
	assert.Equal(t, "fdc", s.Value)
	assert.False(t, Select(s, "fdc"))
	assert.False(t, Select(s, "midi"))
	assert.Equal(t, "fdc", s.Value)
	assert.True(t, Select(s, ""))

	r := &Ram{Options: []Option{{Name: "16K"}, {Name: "32K"}}, Value: "16K"}
	assert.False(t, Select(r, "64K"))
	assert.True(t, Select(r, "32K"))

	d := &Device{}
	assert.True(t, Select(d, "game.bin"))
	assert.Equal(t, "game.bin", d.Value)
}
