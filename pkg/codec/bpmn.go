package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layout"
)

const (
	nsModel  = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	nsDI     = "http://www.omg.org/spec/BPMN/20100524/DI"
	nsDC     = "http://www.omg.org/spec/DD/20100524/DC"
	nsDDI    = "http://www.omg.org/spec/DD/20100524/DI"
	keyBPMN  = "bpmnType"
	keyCond  = "condition"
	exporter = "lattice"
)

var errNothingMapped = errors.New("no recognizable process elements")

// element is a namespace-agnostic view over an XML document.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (e element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (e element) child(local string) (element, bool) {
	for _, c := range e.Children {
		if c.XMLName.Local == local {
			return c, true
		}
	}
	return element{}, false
}

func (e element) walk(fn func(element)) {
	fn(e)
	for _, c := range e.Children {
		c.walk(fn)
	}
}

type bpmnMapping struct {
	kind    domain.NodeKind
	gateway domain.GatewayType
}

var bpmnElements = map[string]bpmnMapping{
	"startEvent":        {kind: domain.KindStartEvent},
	"endEvent":          {kind: domain.KindEndEvent},
	"task":              {kind: domain.KindTask},
	"userTask":          {kind: domain.KindTask},
	"manualTask":        {kind: domain.KindTask},
	"serviceTask":       {kind: domain.KindTask},
	"scriptTask":        {kind: domain.KindTask},
	"businessRuleTask":  {kind: domain.KindTask},
	"sendTask":          {kind: domain.KindTask},
	"receiveTask":       {kind: domain.KindTask},
	"callActivity":      {kind: domain.KindTask},
	"exclusiveGateway":  {kind: domain.KindGateway, gateway: domain.GatewayExclusive},
	"parallelGateway":   {kind: domain.KindGateway, gateway: domain.GatewayParallel},
	"inclusiveGateway":  {kind: domain.KindGateway, gateway: domain.GatewayInclusive},
	"eventBasedGateway": {kind: domain.KindGateway, gateway: domain.GatewayExclusive},
	"complexGateway":    {kind: domain.KindGateway, gateway: domain.GatewayInclusive},
	"subProcess":        {kind: domain.KindSubProcess},
	"adHocSubProcess":   {kind: domain.KindSubProcess},
	"transaction":       {kind: domain.KindSubProcess},
}

// Process-level children that carry no flow semantics.
var bpmnIgnored = map[string]bool{
	"documentation":       true,
	"extensionElements":   true,
	"laneSet":             true,
	"dataObject":          true,
	"dataObjectReference": true,
	"dataStoreReference":  true,
	"textAnnotation":      true,
	"association":         true,
	"property":            true,
	"ioSpecification":     true,
	"sequenceFlow":        true,
}

type bounds struct {
	pos  domain.Position
	size domain.Size
}

func importBPMN(data []byte, opts ...domain.DiagramOption) (*domain.Diagram, int, error) {
	var root element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	var processes []element
	shapes := map[string]bounds{}
	root.walk(func(e element) {
		switch e.XMLName.Local {
		case "process":
			processes = append(processes, e)
		case "BPMNShape":
			b, ok := e.child("Bounds")
			if !ok {
				return
			}
			shapes[e.attr("bpmnElement")] = bounds{
				pos:  domain.Position{X: parseFloat(b.attr("x")), Y: parseFloat(b.attr("y"))},
				size: domain.Size{Width: parseFloat(b.attr("width")), Height: parseFloat(b.attr("height"))},
			}
		}
	})
	if len(processes) == 0 {
		return nil, 0, errNothingMapped
	}

	name := processes[0].attr("name")
	if name == "" {
		name = root.attr("name")
	}
	if name == "" {
		name = "Imported Process"
	}
	d := domain.NewDiagram(name, opts...)
	if doc, ok := processes[0].child("documentation"); ok {
		d.Description = strings.TrimSpace(doc.Text)
	}

	dropped := 0
	allPlaced := true
	var flows []element
	for _, p := range processes {
		for _, el := range p.Children {
			local := el.XMLName.Local
			if local == "sequenceFlow" {
				flows = append(flows, el)
				continue
			}
			m, ok := bpmnElements[local]
			if !ok {
				if !bpmnIgnored[local] {
					dropped++
				}
				continue
			}

			n := domain.Node{
				ID:       el.attr("id"),
				Kind:     m.kind,
				Size:     m.kind.DefaultSize(),
				Label:    el.attr("name"),
				Metadata: domain.Metadata{},
			}
			if n.ID == "" {
				dropped++
				continue
			}
			if m.kind == domain.KindGateway {
				n.Metadata[domain.KeyGatewayType] = string(m.gateway)
			}
			if m.kind == domain.KindTask && local != "task" {
				n.Metadata[keyBPMN] = local
				if local == "serviceTask" || local == "scriptTask" || local == "businessRuleTask" {
					n.Metadata[domain.KeyAutomated] = true
				}
			}
			if doc, ok := el.child("documentation"); ok {
				n.Metadata[domain.KeyDocumentation] = strings.TrimSpace(doc.Text)
			}
			if b, ok := shapes[n.ID]; ok {
				n.Position = b.pos
				if b.size.Width > 0 && b.size.Height > 0 {
					n.Size = b.size
				}
			} else {
				allPlaced = false
			}
			if err := d.AppendNode(n); err != nil {
				dropped++
			}
		}
	}
	if len(d.Nodes) == 0 {
		return nil, dropped, errNothingMapped
	}

	for _, f := range flows {
		e := domain.Edge{
			ID:       f.attr("id"),
			SourceID: f.attr("sourceRef"),
			TargetID: f.attr("targetRef"),
			Label:    f.attr("name"),
		}
		if cond, ok := f.child("conditionExpression"); ok {
			if text := strings.TrimSpace(cond.Text); text != "" {
				e.Metadata = domain.Metadata{keyCond: text}
			}
		}
		if e.ID == "" {
			if _, err := d.Connect(e.SourceID, e.TargetID, e.Label); err != nil {
				dropped++
			}
			continue
		}
		if err := d.AppendEdge(e); err != nil {
			dropped++
		}
	}

	if !allPlaced {
		layout.Layered(d, layout.DefaultOptions())
	}
	return d, dropped, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

type bpmnDefinitions struct {
	XMLName         xml.Name    `xml:"definitions"`
	Xmlns           string      `xml:"xmlns,attr"`
	XmlnsDI         string      `xml:"xmlns:bpmndi,attr"`
	XmlnsDC         string      `xml:"xmlns:dc,attr"`
	XmlnsDDI        string      `xml:"xmlns:di,attr"`
	ID              string      `xml:"id,attr"`
	TargetNamespace string      `xml:"targetNamespace,attr"`
	Exporter        string      `xml:"exporter,attr"`
	Process         bpmnProcess `xml:"process"`
	Diagram         bpmnDiagram `xml:"bpmndi:BPMNDiagram"`
}

type bpmnProcess struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr,omitempty"`
	IsExecutable  bool   `xml:"isExecutable,attr"`
	Documentation string `xml:"documentation,omitempty"`
	Nodes         []bpmnFlowNode
	Flows         []bpmnSequenceFlow `xml:"sequenceFlow"`
}

type bpmnFlowNode struct {
	XMLName       xml.Name
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr,omitempty"`
	Documentation string `xml:"documentation,omitempty"`
}

type bpmnSequenceFlow struct {
	ID        string         `xml:"id,attr"`
	Name      string         `xml:"name,attr,omitempty"`
	SourceRef string         `xml:"sourceRef,attr"`
	TargetRef string         `xml:"targetRef,attr"`
	Condition *bpmnCondition `xml:"conditionExpression,omitempty"`
}

type bpmnCondition struct {
	Text string `xml:",chardata"`
}

type bpmnDiagram struct {
	ID    string    `xml:"id,attr"`
	Plane bpmnPlane `xml:"bpmndi:BPMNPlane"`
}

type bpmnPlane struct {
	ID          string      `xml:"id,attr"`
	BPMNElement string      `xml:"bpmnElement,attr"`
	Shapes      []bpmnShape `xml:"bpmndi:BPMNShape"`
	Edges       []bpmnEdge  `xml:"bpmndi:BPMNEdge"`
}

type bpmnShape struct {
	ID          string     `xml:"id,attr"`
	BPMNElement string     `xml:"bpmnElement,attr"`
	Bounds      bpmnBounds `xml:"dc:Bounds"`
}

type bpmnBounds struct {
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type bpmnEdge struct {
	ID          string         `xml:"id,attr"`
	BPMNElement string         `xml:"bpmnElement,attr"`
	Waypoints   []bpmnWaypoint `xml:"di:waypoint"`
}

type bpmnWaypoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// ExportBPMN writes d as a BPMN 2.0 document with diagram interchange bounds.
// Attributes without a BPMN counterpart (assignee, priority, custom keys) are not carried.
func ExportBPMN(d *domain.Diagram) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil diagram", domain.ErrMalformedInput)
	}

	processID := xmlID("Process", d.ID)
	defs := bpmnDefinitions{
		Xmlns:           nsModel,
		XmlnsDI:         nsDI,
		XmlnsDC:         nsDC,
		XmlnsDDI:        nsDDI,
		ID:              xmlID("Definitions", d.ID),
		TargetNamespace: "http://bpmn.io/schema/bpmn",
		Exporter:        exporter,
		Process: bpmnProcess{
			ID:            processID,
			Name:          d.Name,
			Documentation: d.Description,
		},
		Diagram: bpmnDiagram{
			ID:    xmlID("Diagram", d.ID),
			Plane: bpmnPlane{ID: xmlID("Plane", d.ID), BPMNElement: processID},
		},
	}

	centers := make(map[string]bpmnWaypoint, len(d.Nodes))
	for _, n := range d.Nodes {
		defs.Process.Nodes = append(defs.Process.Nodes, bpmnFlowNode{
			XMLName:       xml.Name{Local: bpmnTag(n)},
			ID:            n.ID,
			Name:          n.Label,
			Documentation: n.Metadata.String(domain.KeyDocumentation),
		})
		defs.Diagram.Plane.Shapes = append(defs.Diagram.Plane.Shapes, bpmnShape{
			ID:          n.ID + "_di",
			BPMNElement: n.ID,
			Bounds:      bpmnBounds{X: n.Position.X, Y: n.Position.Y, Width: n.Size.Width, Height: n.Size.Height},
		})
		centers[n.ID] = bpmnWaypoint{X: n.Position.X + n.Size.Width/2, Y: n.Position.Y + n.Size.Height/2}
	}
	for _, e := range d.Edges {
		flow := bpmnSequenceFlow{ID: e.ID, Name: e.Label, SourceRef: e.SourceID, TargetRef: e.TargetID}
		if cond := e.Metadata.String(keyCond); cond != "" {
			flow.Condition = &bpmnCondition{Text: cond}
		}
		defs.Process.Flows = append(defs.Process.Flows, flow)
		defs.Diagram.Plane.Edges = append(defs.Diagram.Plane.Edges, bpmnEdge{
			ID:          e.ID + "_di",
			BPMNElement: e.ID,
			Waypoints:   []bpmnWaypoint{centers[e.SourceID], centers[e.TargetID]},
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(defs); err != nil {
		return nil, fmt.Errorf("failed to encode bpmn: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func bpmnTag(n domain.Node) string {
	switch n.Kind {
	case domain.KindStartEvent:
		return "startEvent"
	case domain.KindEndEvent:
		return "endEvent"
	case domain.KindSubProcess:
		return "subProcess"
	case domain.KindGateway:
		switch n.GatewayType() {
		case domain.GatewayParallel:
			return "parallelGateway"
		case domain.GatewayInclusive:
			return "inclusiveGateway"
		}
		return "exclusiveGateway"
	}
	if t := n.Metadata.String(keyBPMN); t != "" {
		if m, ok := bpmnElements[t]; ok && m.kind == domain.KindTask {
			return t
		}
	}
	if automated, _ := n.Metadata[domain.KeyAutomated].(bool); automated {
		return "serviceTask"
	}
	return "task"
}

// xmlID derives an NCName-safe identifier; BPMN ids may not start with a digit.
func xmlID(prefix, id string) string {
	if id == "" {
		return prefix + "_1"
	}
	return prefix + "_" + strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return '_'
	}, id)
}
