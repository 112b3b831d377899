package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// rawTextElements contain unescaped text content.
var rawTextElements = map[string]bool{
	"script": true, "style": true,
}

// OuterHTML serializes the node including itself.
func (n *Node) OuterHTML() string {
	var sb strings.Builder
	writeHTML(&sb, n, false)
	return sb.String()
}

// InnerHTML serializes the node's children.
func (n *Node) InnerHTML() string {
	var sb strings.Builder
	for _, c := range n.children {
		writeHTML(&sb, c, false)
	}
	return sb.String()
}

// AnnotatedHTML serializes like OuterHTML but adds a data-rmx-id
// attribute to every element carrying event listeners, so a thin client
// can address them when reporting events back.
func (n *Node) AnnotatedHTML() string {
	var sb strings.Builder
	writeHTML(&sb, n, true)
	return sb.String()
}

func writeHTML(sb *strings.Builder, n *Node, ids bool) {
	switch n.kind {
	case TextNode:
		if n.parent != nil && rawTextElements[n.parent.tag] {
			sb.WriteString(n.data)
		} else {
			sb.WriteString(EscapeText(n.data))
		}
	case CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.data)
		sb.WriteString("-->")
	case ElementNode:
		sb.WriteByte('<')
		sb.WriteString(n.tag)
		for _, name := range n.attrOrder {
			sb.WriteByte(' ')
			sb.WriteString(name)
			sb.WriteString(`="`)
			sb.WriteString(EscapeAttr(n.attrs[name]))
			sb.WriteByte('"')
		}
		if ids && n.HasListeners() {
			sb.WriteString(` data-rmx-id="`)
			sb.WriteString(EscapeAttr(uintString(n.id)))
			sb.WriteByte('"')
		}
		sb.WriteByte('>')
		if IsVoidElement(n.tag) {
			return
		}
		for _, c := range n.children {
			writeHTML(sb, c, ids)
		}
		sb.WriteString("</")
		sb.WriteString(n.tag)
		sb.WriteByte('>')
	}
}

func uintString(v uint64) string {
	const digits = "0123456789"
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%10]
		v /= 10
	}
	return string(buf[i:])
}

// EscapeText escapes text for safe inclusion in HTML content.
func EscapeText(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// EscapeAttr escapes text for safe inclusion in attribute values.
func EscapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// ParseInto parses an HTML fragment and appends the resulting nodes to
// container. Recording is suspended during the parse so adoption
// baselines (hydration) start from an empty mutation log.
func ParseInto(container *Node, src string) error {
	ctxTag := container.tag
	if ctxTag == "" {
		ctxTag = "div"
	}
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     ctxTag,
		DataAtom: atom.Lookup([]byte(ctxTag)),
	}
	frag, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return err
	}
	doc := container.doc
	wasRecording := doc.recording
	doc.recording = false
	defer func() { doc.recording = wasRecording }()
	for _, hn := range frag {
		if converted := convertHTMLNode(doc, hn, container.namespace); converted != nil {
			container.children = append(container.children, converted)
			converted.parent = container
		}
	}
	return nil
}

func convertHTMLNode(doc *Document, hn *html.Node, namespace string) *Node {
	switch hn.Type {
	case html.TextNode:
		return doc.CreateText(hn.Data)
	case html.CommentNode:
		return doc.CreateComment(hn.Data)
	case html.ElementNode:
		ns := namespace
		if hn.Data == "svg" || hn.Namespace == "svg" {
			ns = "svg"
		}
		n := doc.createElement(hn.Data, ns)
		for _, a := range hn.Attr {
			n.attrOrder = append(n.attrOrder, a.Key)
			n.attrs[a.Key] = a.Val
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if converted := convertHTMLNode(doc, c, ns); converted != nil {
				converted.parent = n
				n.children = append(n.children, converted)
			}
		}
		return n
	default:
		return nil
	}
}
