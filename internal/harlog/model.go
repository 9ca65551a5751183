// Package harlog defines the capture document model (HTTP Archive 1.2
// compatible) together with parsing, validation and lookup helpers. The
// package is pure: no I/O, no host imports, no mutation of parsed data.
package harlog

import "encoding/json"

// Version is the HAR format version written by this package.
const Version = "1.2"

// Document is the root container of a capture document.
type Document struct {
	Log Log `json:"log"`
}

// Log holds capture metadata and the ordered entry sequence. Entry order is
// chronological capture order and is never re-sorted in place.
type Log struct {
	Version string   `json:"version"`
	Creator Creator  `json:"creator"`
	Browser *Browser `json:"browser,omitempty"`
	Pages   []Page   `json:"pages,omitempty"`
	Entries []Entry  `json:"entries"`
	Comment string   `json:"comment,omitempty"`
}

// Creator identifies the application that produced the document.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Comment string `json:"comment,omitempty"`
}

// Browser identifies the browser the traffic was captured from.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Comment string `json:"comment,omitempty"`
}

// Page describes one logical page load.
type Page struct {
	StartedDateTime string      `json:"startedDateTime"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	PageTimings     PageTimings `json:"pageTimings"`
	Comment         string      `json:"comment,omitempty"`
}

// PageTimings describes page-level load timings in milliseconds.
type PageTimings struct {
	OnContentLoad float64 `json:"onContentLoad,omitempty"`
	OnLoad        float64 `json:"onLoad,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// Entry is one captured request/response exchange.
type Entry struct {
	Pageref         string    `json:"pageref,omitempty"`
	StartedDateTime string    `json:"startedDateTime"`
	Time            float64   `json:"time"`
	Request         *Request  `json:"request"`
	Response        *Response `json:"response"`
	Cache           Cache     `json:"cache"`
	Timings         Timings   `json:"timings"`
	ServerIPAddress string    `json:"serverIPAddress,omitempty"`
	Connection      string    `json:"connection,omitempty"`
	Comment         string    `json:"comment,omitempty"`
}

// Request describes the request half of an exchange.
type Request struct {
	Method      string          `json:"method"`
	URL         string          `json:"url"`
	HTTPVersion string          `json:"httpVersion"`
	Cookies     []Cookie        `json:"cookies"`
	Headers     []NameValuePair `json:"headers"`
	QueryString []NameValuePair `json:"queryString"`
	PostData    *PostData       `json:"postData,omitempty"`
	HeadersSize int64           `json:"headersSize"`
	BodySize    int64           `json:"bodySize"`
	Comment     string          `json:"comment,omitempty"`
}

// Response describes the response half of an exchange.
type Response struct {
	Status      int             `json:"status"`
	StatusText  string          `json:"statusText"`
	HTTPVersion string          `json:"httpVersion"`
	Cookies     []Cookie        `json:"cookies"`
	Headers     []NameValuePair `json:"headers"`
	Content     Content         `json:"content"`
	RedirectURL string          `json:"redirectURL"`
	HeadersSize int64           `json:"headersSize"`
	BodySize    int64           `json:"bodySize"`
	Comment     string          `json:"comment,omitempty"`
}

// Cookie is a single request or response cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  string `json:"expires,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// NameValuePair is the generic pair used for headers and query parameters.
// Duplicate names are legal and preserved in order.
type NameValuePair struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// PostData describes a request body.
type PostData struct {
	MimeType string      `json:"mimeType"`
	Params   []PostParam `json:"params,omitempty"`
	Text     string      `json:"text,omitempty"`
	Comment  string      `json:"comment,omitempty"`
}

// PostParam is one parsed request body parameter.
type PostParam struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// Content describes response content. Size is the uncompressed byte count,
// -1 when unknown (HAR convention).
type Content struct {
	Size        int64  `json:"size"`
	Compression int64  `json:"compression,omitempty"`
	MimeType    string `json:"mimeType"`
	Text        string `json:"text,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// Cache holds the cache state of an exchange. This package carries it
// opaquely and never interprets it.
type Cache struct {
	BeforeRequest json.RawMessage `json:"beforeRequest,omitempty"`
	AfterRequest  json.RawMessage `json:"afterRequest,omitempty"`
	Comment       string          `json:"comment,omitempty"`
}

// Timings breaks the exchange duration into phases, in milliseconds.
// Send, wait and receive are always present; the rest are -1 when not
// applicable.
type Timings struct {
	Blocked float64 `json:"blocked,omitempty"`
	DNS     float64 `json:"dns,omitempty"`
	Connect float64 `json:"connect,omitempty"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
	SSL     float64 `json:"ssl,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// NewDocument returns a minimal valid document with zero entries.
func NewDocument(creatorName, creatorVersion string) *Document {
	return &Document{
		Log: Log{
			Version: Version,
			Creator: Creator{Name: creatorName, Version: creatorVersion},
			Entries: []Entry{},
		},
	}
}

// Clone returns a deep copy of the entry. Nested slices and pointers are
// copied so the result shares no mutable state with the receiver.
func (e Entry) Clone() Entry {
	out := e
	if e.Request != nil {
		req := *e.Request
		req.Cookies = append([]Cookie(nil), e.Request.Cookies...)
		req.Headers = append([]NameValuePair(nil), e.Request.Headers...)
		req.QueryString = append([]NameValuePair(nil), e.Request.QueryString...)
		if e.Request.PostData != nil {
			pd := *e.Request.PostData
			pd.Params = append([]PostParam(nil), e.Request.PostData.Params...)
			req.PostData = &pd
		}
		out.Request = &req
	}
	if e.Response != nil {
		resp := *e.Response
		resp.Cookies = append([]Cookie(nil), e.Response.Cookies...)
		resp.Headers = append([]NameValuePair(nil), e.Response.Headers...)
		out.Response = &resp
	}
	out.Cache.BeforeRequest = append(json.RawMessage(nil), e.Cache.BeforeRequest...)
	out.Cache.AfterRequest = append(json.RawMessage(nil), e.Cache.AfterRequest...)
	return out
}
