// Package contenttype contains the content type bitmask vocabulary shared by
// filters and requests.
package contenttype

import (
	"iter"
	"math/bits"
	"strings"
)

// Type is a bitmask of content types.  A filter carries the set of types it
// applies to, a request carries the type (or types) it is being matched with.
type Type uint32

// Resource types.  These are the kinds of content a page can load.
const (
	// Other is any other request type.
	Other Type = 1 << 0
	// Script is JavaScript and similar, $script.
	Script Type = 1 << 1
	// Image is any image, $image.
	Image Type = 1 << 2
	// Stylesheet is CSS, $stylesheet.
	Stylesheet Type = 1 << 3
	// Object is flash and other plugin content, $object.
	Object Type = 1 << 4
	// Subdocument is an iframe, $subdocument.
	Subdocument Type = 1 << 5
	// Websocket is a websocket connection, $websocket.
	Websocket Type = 1 << 7
	// WebRTC is a WebRTC connection, $webrtc.
	WebRTC Type = 1 << 8
	// Ping is navigator.sendBeacon() or the ping attribute on links, $ping.
	Ping Type = 1 << 10
	// XMLHTTPRequest is ajax or fetch, $xmlhttprequest.
	XMLHTTPRequest Type = 1 << 11
	// Media is video or music, $media.
	Media Type = 1 << 14
	// Font is any custom font, $font.
	Font Type = 1 << 15
)

// Special types.  These are filter options and exception flags rather than
// kinds of content.
const (
	Popup        Type = 1 << 24
	CSP          Type = 1 << 25
	Header       Type = 1 << 26
	Document     Type = 1 << 27
	GenericBlock Type = 1 << 28
	ElemHide     Type = 1 << 29
	GenericHide  Type = 1 << 30
)

// Aliases kept for compatibility with older filter lists.
const (
	Background       = Image
	XBL              = Other
	DTD              = Other
	ObjectSubrequest = Object
)

const (
	// ResourceTypes are all the bits that describe loaded content.
	ResourceTypes Type = 1<<24 - 1

	// SpecialTypes are all the bits that are not resource types.
	SpecialTypes Type = ^ResourceTypes

	// WhitelistingTypes are the types that only exception filters use.
	WhitelistingTypes Type = Document | GenericBlock | ElemHide | GenericHide

	// All selects every bit.
	All Type = ^Type(0)
)

// names maps option names to the types.  Keep in sync with [primaryNames].
var names = map[string]Type{
	"other":             Other,
	"script":            Script,
	"image":             Image,
	"stylesheet":        Stylesheet,
	"object":            Object,
	"subdocument":       Subdocument,
	"websocket":         Websocket,
	"webrtc":            WebRTC,
	"ping":              Ping,
	"xmlhttprequest":    XMLHTTPRequest,
	"media":             Media,
	"font":              Font,
	"popup":             Popup,
	"csp":               CSP,
	"header":            Header,
	"document":          Document,
	"genericblock":      GenericBlock,
	"elemhide":          ElemHide,
	"generichide":       GenericHide,
	"background":        Background,
	"xbl":               XBL,
	"dtd":               DTD,
	"object-subrequest": ObjectSubrequest,
}

// primaryNames is used by [Type.String].  Aliases are not included.
var primaryNames = map[Type]string{
	Other:          "other",
	Script:         "script",
	Image:          "image",
	Stylesheet:     "stylesheet",
	Object:         "object",
	Subdocument:    "subdocument",
	Websocket:      "websocket",
	WebRTC:         "webrtc",
	Ping:           "ping",
	XMLHTTPRequest: "xmlhttprequest",
	Media:          "media",
	Font:           "font",
	Popup:          "popup",
	CSP:            "csp",
	Header:         "header",
	Document:       "document",
	GenericBlock:   "genericblock",
	ElemHide:       "elemhide",
	GenericHide:    "generichide",
}

// FromName returns the type for the option name, which must be in lower case.
// ok is false if there is no such type.
func FromName(name string) (t Type, ok bool) {
	t, ok = names[name]

	return t, ok
}

// Count returns the number of the set bits.
func (t Type) Count() (n int) {
	return bits.OnesCount32(uint32(t))
}

// IsSingle returns true if exactly one bit of t is set.
func (t Type) IsSingle() (ok bool) {
	return t != 0 && t&(t-1) == 0
}

// String implements the [fmt.Stringer] interface for Type.  Unnamed bits are
// skipped.
func (t Type) String() (s string) {
	var parts []string
	for bit := range Enumerate(t, All) {
		if name, ok := primaryNames[bit]; ok {
			parts = append(parts, name)
		}
	}

	return strings.Join(parts, "|")
}

// Enumerate returns the sequence of single-bit types present in both mask and
// selection, from the least significant bit to the most significant one.  Pass
// [All] as selection to enumerate the whole mask.
func Enumerate(mask, selection Type) (seq iter.Seq[Type]) {
	return func(yield func(Type) bool) {
		for rest := mask & selection; rest != 0; rest &= rest - 1 {
			if !yield(rest & -rest) {
				return
			}
		}
	}
}
