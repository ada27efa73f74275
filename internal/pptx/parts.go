package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	relOfficeDoc    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

const packageRelsXML = xmlHeader + `<Relationships xmlns="` + nsRelationships + `">
  <Relationship Id="rId1" Type="` + relOfficeDoc + `/officeDocument" Target="ppt/presentation.xml"/>
  <Relationship Id="rId2" Type="` + nsRelationships + `/metadata/core-properties" Target="docProps/core.xml"/>
  <Relationship Id="rId3" Type="` + relOfficeDoc + `/extended-properties" Target="docProps/app.xml"/>
</Relationships>`

func contentTypesXML(slides int) string {
	var b strings.Builder

	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="jpeg" ContentType="image/jpeg"/>
  <Default Extension="jpg" ContentType="image/jpeg"/>
  <Default Extension="png" ContentType="image/png"/>
  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
  <Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
  <Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
`)

	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `  <Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`+"\n", i)
	}

	b.WriteString(`</Types>`)

	return b.String()
}

func appXML(slides int) string {
	return fmt.Sprintf(xmlHeader+`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
  <Application>bigslides</Application>
  <Slides>%d</Slides>
</Properties>`, slides)
}

func coreXML(title string, created time.Time) string {
	return fmt.Sprintf(xmlHeader+`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <dc:title>%s</dc:title>
  <dc:creator>bigslides</dc:creator>
  <dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>
  <cp:revision>1</cp:revision>
</cp:coreProperties>`, escape(title), created.UTC().Format("2006-01-02T15:04:05Z"))
}

func presentationRelsXML(slides int) string {
	var b strings.Builder

	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsRelationships + `">` + "\n")

	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `  <Relationship Id="rId%d" Type="`+relOfficeDoc+`/slide" Target="slides/slide%d.xml"/>`+"\n", i, i)
	}

	b.WriteString(`</Relationships>`)

	return b.String()
}

func presentationXML(slides int, size slideSize) string {
	var ids strings.Builder

	for i := 0; i < slides; i++ {
		fmt.Fprintf(&ids, `    <p:sldId id="%d" r:id="rId%d"/>`+"\n", 256+i, i+1)
	}

	return fmt.Sprintf(xmlHeader+`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="`+relOfficeDoc+`" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:sldIdLst>
%s  </p:sldIdLst>
  <p:sldSz cx="%d" cy="%d"/>
  <p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>`, ids.String(), size.cx, size.cy)
}

func slideRelsXML(media string) string {
	return fmt.Sprintf(xmlHeader+`<Relationships xmlns="`+nsRelationships+`">
  <Relationship Id="rId1" Type="`+relOfficeDoc+`/image" Target="../media/%s"/>
</Relationships>`, media)
}

func slideXML(size slideSize) string {
	return fmt.Sprintf(xmlHeader+`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="`+relOfficeDoc+`" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="2" name="Image"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="rId1"/>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
          <a:xfrm>
            <a:off x="0" y="0"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
        </p:spPr>
      </p:pic>
    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, size.cx, size.cy)
}

func escape(s string) string {
	var b bytes.Buffer

	_ = xml.EscapeText(&b, []byte(s))

	return b.String()
}
