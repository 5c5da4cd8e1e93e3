package listxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Prologue marks the start of well-formed -listxml output.
const Prologue = `<?xml version="1.0"`

// HasPrologue reports whether output starts with the structured-output
// prologue, ignoring leading whitespace.
func HasPrologue(output []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(output, " \t\r\n"), []byte(Prologue))
}

// Document is the parsed description of one or more machines. Older
// emulator releases used <game> where newer ones use <machine>.
type Document struct {
	XMLName  xml.Name  `xml:"-"`
	Build    string    `xml:"build,attr"`
	Machines []Machine `xml:"machine"`
	Games    []Machine `xml:"game"`
}

// Machine is one machine or device entry.
type Machine struct {
	Name          string         `xml:"name,attr"`
	SourceFile    string         `xml:"sourcefile,attr"`
	IsDevice      string         `xml:"isdevice,attr"`
	Description   string         `xml:"description"`
	DeviceRefs    []DeviceRef    `xml:"device_ref"`
	BiosSets      []BiosSet      `xml:"biosset"`
	RamOptions    []RamOption    `xml:"ramoption"`
	Devices       []Device       `xml:"device"`
	Slots         []Slot         `xml:"slot"`
	SoftwareLists []SoftwareList `xml:"softwarelist"`
}

type DeviceRef struct {
	Name string `xml:"name,attr"`
}

type BiosSet struct {
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
	Default     string `xml:"default,attr"`
}

// RamOption carries the size as text content. The default attribute is a
// presence flag.
type RamOption struct {
	Name    string  `xml:"name,attr"`
	Default *string `xml:"default,attr"`
	Value   string  `xml:",chardata"`
}

type Device struct {
	Type       string      `xml:"type,attr"`
	Tag        string      `xml:"tag,attr"`
	Mandatory  string      `xml:"mandatory,attr"`
	Interface  string      `xml:"interface,attr"`
	Instances  []Instance  `xml:"instance"`
	Extensions []Extension `xml:"extension"`
}

type Instance struct {
	Name      string `xml:"name,attr"`
	BriefName string `xml:"briefname,attr"`
}

type Extension struct {
	Name string `xml:"name,attr"`
}

type Slot struct {
	Name    string       `xml:"name,attr"`
	Options []SlotOption `xml:"slotoption"`
}

type SlotOption struct {
	Name    string `xml:"name,attr"`
	DevName string `xml:"devname,attr"`
	Default string `xml:"default,attr"`
}

type SoftwareList struct {
	Name   string `xml:"name,attr"`
	Status string `xml:"status,attr"`
	Filter string `xml:"filter,attr"`
}

// Parse decodes a -listxml document. The root element name is not checked.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := xml.NewDecoder(r)
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode listxml: %w", err)
	}
	return &doc, nil
}

// Machine looks up an entry by name, trying <machine> entries before
// <game> entries.
func (d *Document) Machine(name string) (*Machine, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Machines {
		if d.Machines[i].Name == name {
			return &d.Machines[i], true
		}
	}
	for i := range d.Games {
		if d.Games[i].Name == name {
			return &d.Games[i], true
		}
	}
	return nil, false
}

// IsYes reports whether an attribute carries the emulator's "yes" flag.
func IsYes(attr string) bool {
	return attr == "yes" || attr == "1"
}
