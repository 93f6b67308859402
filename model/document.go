package model

import (
	"encoding/xml"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/psm/probability"
)

// modelDocument is the persisted scene model:
//
//	<psm>
//	  <priors rows="1"><entry type="Kitchen"><count row="0" value="4"/></entry></priors>
//	  <scene description="Kitchen" type="kitchen" algorithm="multiplied">
//	    <background rows="2">...</background>
//	    <foreground type="Cup" samples="4">
//	      <sum x="..." y="..." z="..."/>
//	      <outer xx="..." xy="..." xz="..." yy="..." yz="..." zz="..."/>
//	    </foreground>
//	  </scene>
//	</psm>
type modelDocument struct {
	XMLName xml.Name               `xml:"psm"`
	Priors  *probability.TableNode `xml:"priors"`
	Scenes  []sceneNode            `xml:"scene"`
}

type sceneNode struct {
	Description string                `xml:"description,attr"`
	Type        string                `xml:"type,attr"`
	Algorithm   string                `xml:"algorithm,attr,omitempty"`
	Examples    int                   `xml:"examples,attr,omitempty"`
	Background  probability.TableNode `xml:"background"`
	Foreground  []distributionNode    `xml:"foreground"`
}

type distributionNode struct {
	Type    string    `xml:"type,attr"`
	Samples int       `xml:"samples,attr"`
	Sum     vectorXML `xml:"sum"`
	Outer   outerXML  `xml:"outer"`
}

type vectorXML struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type outerXML struct {
	XX float64 `xml:"xx,attr"`
	XY float64 `xml:"xy,attr"`
	XZ float64 `xml:"xz,attr"`
	YY float64 `xml:"yy,attr"`
	YZ float64 `xml:"yz,attr"`
	ZZ float64 `xml:"zz,attr"`
}

func (d *Distribution) toNode() distributionNode {
	o := d.sumOuter
	return distributionNode{
		Type:    d.objectType,
		Samples: d.samples,
		Sum:     vectorXML{d.sum.X, d.sum.Y, d.sum.Z},
		Outer:   outerXML{o.At(0, 0), o.At(0, 1), o.At(0, 2), o.At(1, 1), o.At(1, 2), o.At(2, 2)},
	}
}

func distributionFromNode(n distributionNode) *Distribution {
	o := n.Outer
	return &Distribution{
		objectType: n.Type,
		samples:    n.Samples,
		sum:        r3.Vector{X: n.Sum.X, Y: n.Sum.Y, Z: n.Sum.Z},
		sumOuter: mat.NewSymDense(3, []float64{
			o.XX, o.XY, o.XZ,
			o.XY, o.YY, o.YZ,
			o.XZ, o.YZ, o.ZZ,
		}),
	}
}
