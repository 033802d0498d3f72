package worker

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the worker's per-class crawl counter set: one gallery,
// document and comment counter each for success and error outcomes,
// matching the classes the worker control loop aggregates per cycle.
type Metrics struct {
	GallerySuccess  prometheus.Counter
	GalleryError    prometheus.Counter
	DocumentSuccess prometheus.Counter
	DocumentError   prometheus.Counter
	CommentSuccess  prometheus.Counter
	CommentError    prometheus.Counter
}

// NewMetrics registers and returns the worker's counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GallerySuccess:  prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_gallery_success", Help: "galleries crawled without error"}),
		GalleryError:    prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_gallery_error", Help: "galleries that failed to crawl"}),
		DocumentSuccess: prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_document_success", Help: "documents assembled and published without error"}),
		DocumentError:   prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_document_error", Help: "documents that failed to assemble or publish"}),
		CommentSuccess:  prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_comment_success", Help: "published documents with comments whose comment fetch succeeded"}),
		CommentError:    prometheus.NewCounter(prometheus.CounterOpts{Name: "dccrawler_comment_error", Help: "documents whose comment fetch failed"}),
	}
	reg.MustRegister(
		m.GallerySuccess, m.GalleryError,
		m.DocumentSuccess, m.DocumentError,
		m.CommentSuccess, m.CommentError,
	)
	return m
}
