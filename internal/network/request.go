package network

import (
	"net/http"
)

// Request は、アダプタが組み立てる送信前のHTTPリクエスト記述子です。
// 実行は Client が担当し、アダプタ自身は通信を行いません。
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// GET は GET リクエスト記述子を生成します。
func GET(url string, header http.Header) *Request {
	return &Request{Method: http.MethodGet, URL: url, Header: cloneHeader(header)}
}

// POST は POST リクエスト記述子を生成します。
func POST(url string, header http.Header, body []byte) *Request {
	return &Request{Method: http.MethodPost, URL: url, Header: cloneHeader(header), Body: body}
}

// Clone は Request のコピーを返します。
func (r *Request) Clone() *Request {
	c := *r
	c.Header = cloneHeader(r.Header)
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
