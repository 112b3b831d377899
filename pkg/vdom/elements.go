package vdom

// Document structure elements

func Html(args ...any) *Element  { return H("html", args...) }
func Head(args ...any) *Element  { return H("head", args...) }
func Body(args ...any) *Element  { return H("body", args...) }
func Title(args ...any) *Element { return H("title", args...) }
func Meta(args ...any) *Element  { return H("meta", args...) }
func Link(args ...any) *Element  { return H("link", args...) }

// Content sectioning elements

func Header(args ...any) *Element  { return H("header", args...) }
func Footer(args ...any) *Element  { return H("footer", args...) }
func Main(args ...any) *Element    { return H("main", args...) }
func Nav(args ...any) *Element     { return H("nav", args...) }
func Section(args ...any) *Element { return H("section", args...) }
func Article(args ...any) *Element { return H("article", args...) }
func Aside(args ...any) *Element   { return H("aside", args...) }
func H1(args ...any) *Element      { return H("h1", args...) }
func H2(args ...any) *Element      { return H("h2", args...) }
func H3(args ...any) *Element      { return H("h3", args...) }
func H4(args ...any) *Element      { return H("h4", args...) }

// Text content elements

func Div(args ...any) *Element        { return H("div", args...) }
func P(args ...any) *Element          { return H("p", args...) }
func Span(args ...any) *Element       { return H("span", args...) }
func Pre(args ...any) *Element        { return H("pre", args...) }
func Blockquote(args ...any) *Element { return H("blockquote", args...) }
func Ul(args ...any) *Element         { return H("ul", args...) }
func Ol(args ...any) *Element         { return H("ol", args...) }
func Li(args ...any) *Element         { return H("li", args...) }
func Hr(args ...any) *Element         { return H("hr", args...) }
func Br(args ...any) *Element         { return H("br", args...) }

// Inline text semantics

func A(args ...any) *Element      { return H("a", args...) }
func Strong(args ...any) *Element { return H("strong", args...) }
func Em(args ...any) *Element     { return H("em", args...) }
func Small(args ...any) *Element  { return H("small", args...) }
func Code(args ...any) *Element   { return H("code", args...) }
func Kbd(args ...any) *Element    { return H("kbd", args...) }

// Form elements

func Form(args ...any) *Element     { return H("form", args...) }
func Input(args ...any) *Element    { return H("input", args...) }
func Textarea(args ...any) *Element { return H("textarea", args...) }
func Select(args ...any) *Element   { return H("select", args...) }
func Option(args ...any) *Element   { return H("option", args...) }
func Button(args ...any) *Element   { return H("button", args...) }
func Label(args ...any) *Element    { return H("label", args...) }

// Table elements

func Table(args ...any) *Element { return H("table", args...) }
func Thead(args ...any) *Element { return H("thead", args...) }
func Tbody(args ...any) *Element { return H("tbody", args...) }
func Tr(args ...any) *Element    { return H("tr", args...) }
func Th(args ...any) *Element    { return H("th", args...) }
func Td(args ...any) *Element    { return H("td", args...) }

// Media and scripting elements

func Img(args ...any) *Element      { return H("img", args...) }
func Svg(args ...any) *Element      { return H("svg", args...) }
func Canvas(args ...any) *Element   { return H("canvas", args...) }
func Iframe(args ...any) *Element   { return H("iframe", args...) }
func Script(args ...any) *Element   { return H("script", args...) }
func Noscript(args ...any) *Element { return H("noscript", args...) }
func Template(args ...any) *Element { return H("template", args...) }
func StyleEl(args ...any) *Element  { return H("style", args...) }

// CustomElement creates an element with a custom tag name.
func CustomElement(tag string, args ...any) *Element {
	return H(tag, args...)
}
