// Package templates holds the slide style catalog and turns a single slide
// into a standalone HTML document sized for its output format.
//
// Styles are declared in an embedded YAML catalog. Each style picks one of a
// handful of layouts and a highlight treatment for <hl> markup; colours and
// fonts come from the catalog entry. The HTML is ready for the headless
// browser in package render.
package templates
