package ontology

// Format is the value type of a relation.
type Format string

const (
	FormatShortText   Format = "shorttext"
	FormatLongText    Format = "longtext"
	FormatNumber      Format = "number"
	FormatSelect      Format = "select"
	FormatMultiSelect Format = "multiselect"
	FormatDate        Format = "date"
	FormatFile        Format = "file"
	FormatCheckbox    Format = "checkbox"
	FormatURL         Format = "url"
	FormatEmail       Format = "email"
	FormatPhone       Format = "phone"
	FormatObject      Format = "object"
	FormatTag         Format = "tag"
	FormatStatus      Format = "status"
)

var formats = []Format{
	FormatShortText, FormatLongText, FormatNumber, FormatSelect, FormatMultiSelect,
	FormatDate, FormatFile, FormatCheckbox, FormatURL, FormatEmail, FormatPhone,
	FormatObject, FormatTag, FormatStatus,
}

// Formats returns every valid relation format.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether relations of this format carry select options.
func (f Format) HasOptions() bool {
	return f == FormatSelect || f == FormatMultiSelect || f == FormatStatus || f == FormatTag
}

// Layout is the default presentation of objects of a type.
type Layout string

const (
	LayoutBasic      Layout = "basic"
	LayoutProfile    Layout = "profile"
	LayoutTodo       Layout = "todo"
	LayoutNote       Layout = "note"
	LayoutBookmark   Layout = "bookmark"
	LayoutSet        Layout = "set"
	LayoutCollection Layout = "collection"
	LayoutFile       Layout = "file"
	LayoutImage      Layout = "image"
	LayoutAudio      Layout = "audio"
	LayoutVideo      Layout = "video"
	LayoutPDF        Layout = "pdf"
)

var layouts = []Layout{
	LayoutBasic, LayoutProfile, LayoutTodo, LayoutNote, LayoutBookmark, LayoutSet,
	LayoutCollection, LayoutFile, LayoutImage, LayoutAudio, LayoutVideo, LayoutPDF,
}

// Layouts returns every valid layout.
func Layouts() []Layout {
	out := make([]Layout, len(layouts))
	copy(out, layouts)
	return out
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	for _, known := range layouts {
		if l == known {
			return true
		}
	}
	return false
}
