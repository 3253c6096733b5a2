// Package layout loads the theme layouts that describe overlay screens.
//
// A layout is a small XML document naming the elements a screen shows and
// where the screen sits on the display. It is not a widget toolkit; the host
// decides how each element is drawn.
package layout

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ElementType identifies the type of layout element.
type ElementType string

const (
	ElementTypeBox          ElementType = "box"
	ElementTypeHeader       ElementType = "header"
	ElementTypeImage        ElementType = "image"
	ElementTypeTitle        ElementType = "title"
	ElementTypeOrigin       ElementType = "origin"
	ElementTypeDescription  ElementType = "description"
	ElementTypeExtra        ElementType = "extra"
	ElementTypeProgressText ElementType = "progress_text"
	ElementTypeProgress     ElementType = "progress"
	ElementTypeMessageArea  ElementType = "messagearea"
	ElementTypeList         ElementType = "list"
)

// ValidElements lists all recognized element types.
var ValidElements = map[string]ElementType{
	"box":           ElementTypeBox,
	"header":        ElementTypeHeader,
	"image":         ElementTypeImage,
	"title":         ElementTypeTitle,
	"origin":        ElementTypeOrigin,
	"description":   ElementTypeDescription,
	"extra":         ElementTypeExtra,
	"progress_text": ElementTypeProgressText,
	"progress":      ElementTypeProgress,
	"messagearea":   ElementTypeMessageArea,
	"list":          ElementTypeList,
}

// ErrTemplateNotFound is returned when no layout matches a name.
var ErrTemplateNotFound = errors.New("layout template not found")

// LayoutConfig represents the parsed layout structure ready for UI building.
type LayoutConfig struct {
	// Name the layout was resolved under (e.g. "notification-error").
	Name string

	// Position and size of the screen in display pixels.
	X      int
	Y      int
	Width  int
	Height int

	Elements []LayoutElement
}

// LayoutElement represents a single element in the layout.
type LayoutElement struct {
	Type       ElementType
	Attributes map[string]string
	Children   []LayoutElement
}

// Default returns the theme default value of the element (its "default"
// attribute), used when a screen resets the element.
func (e *LayoutElement) Default() string {
	return e.Attributes["default"]
}

// Find returns the first element of type t, searching depth first.
func (c *LayoutConfig) Find(t ElementType) *LayoutElement {
	return findElement(c.Elements, t)
}

// Has reports whether the layout contains an element of type t.
func (c *LayoutConfig) Has(t ElementType) bool {
	return c.Find(t) != nil
}

// Default returns the default value of the element of type t, or "".
func (c *LayoutConfig) Default(t ElementType) string {
	if e := c.Find(t); e != nil {
		return e.Default()
	}
	return ""
}

func findElement(elements []LayoutElement, t ElementType) *LayoutElement {
	for i := range elements {
		if elements[i].Type == t {
			return &elements[i]
		}
		if found := findElement(elements[i].Children, t); found != nil {
			return found
		}
	}
	return nil
}

// ParseTemplate parses an XML layout template from a reader.
func ParseTemplate(r io.Reader) (*LayoutConfig, error) {
	decoder := xml.NewDecoder(r)

	// Find the root <overlay> element
	var config LayoutConfig
	found := false
	for !found {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "overlay" {
			continue
		}

		for _, attr := range se.Attr {
			v, err := parsePixelValue(attr.Value)
			if err != nil {
				continue
			}
			switch attr.Name.Local {
			case "x":
				config.X = v
			case "y":
				config.Y = v
			case "width":
				config.Width = v
			case "height":
				config.Height = v
			}
		}

		elements, err := parseElements(decoder)
		if err != nil {
			return nil, err
		}
		config.Elements = elements
		found = true
	}

	if !found {
		return nil, errors.New("template has no <overlay> root")
	}
	return &config, nil
}

// parsePixelValue parses a pixel value string (e.g., "300", "300px") to int.
func parsePixelValue(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

// parseElements recursively parses child elements.
func parseElements(decoder *xml.Decoder) ([]LayoutElement, error) {
	var elements []LayoutElement

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read element: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elemName := strings.ToLower(t.Name.Local)
			elemType, ok := ValidElements[elemName]
			if !ok {
				return nil, fmt.Errorf("unknown element type: %s", elemName)
			}

			elem := LayoutElement{
				Type:       elemType,
				Attributes: make(map[string]string),
			}
			for _, attr := range t.Attr {
				elem.Attributes[attr.Name.Local] = attr.Value
			}

			children, err := parseElements(decoder)
			if err != nil {
				return nil, err
			}
			elem.Children = children

			elements = append(elements, elem)

		case xml.EndElement:
			return elements, nil
		}
	}

	return elements, nil
}

// ParseTemplateString parses a template from a string.
func ParseTemplateString(s string) (*LayoutConfig, error) {
	return ParseTemplate(strings.NewReader(s))
}

// LoadTemplate loads a template from file.
func LoadTemplate(path string) (*LayoutConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseTemplate(f)
}

// Loader handles loading layout templates from various sources.
type Loader struct {
	templatesDir string
}

// NewLoader creates a new template loader. An empty directory uses only the
// embedded templates.
func NewLoader(templatesDir string) *Loader {
	return &Loader{templatesDir: templatesDir}
}

// Dir returns the user templates directory.
func (l *Loader) Dir() string {
	return l.templatesDir
}

// Load loads a layout template by name.
// Checks user directory first, then falls back to the embedded templates.
func (l *Loader) Load(name string) (*LayoutConfig, error) {
	var config *LayoutConfig

	if l.templatesDir != "" {
		templatePath := filepath.Join(l.templatesDir, name+".xml")
		if _, err := os.Stat(templatePath); err == nil {
			c, err := LoadTemplate(templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", templatePath, err)
			}
			config = c
		}
	}

	if config == nil {
		c, ok := GetEmbeddedTemplate(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		config = c
	}

	config.Name = name
	return config, nil
}

// Resolve loads the layout for a screen name, preferring the styled variant
// "name-style" when a style is given.
func (l *Loader) Resolve(name, style string) (*LayoutConfig, error) {
	if style != "" {
		config, err := l.Load(name + "-" + style)
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
	}
	return l.Load(name)
}
