package node

import (
	"time"

	"github.com/vk/nodeflow/internal/schema"
)

// Option configures a Node at construction.
type Option func(*Node)

// WithTimeout sets how long Process may run. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithSchema sets the schema the run input must satisfy.
func WithSchema(s *schema.Schema) Option {
	return func(n *Node) { n.schema = s }
}

// WithConfigSchema sets the schema the node configuration must satisfy at bind time.
func WithConfigSchema(s *schema.Schema) Option {
	return func(n *Node) { n.configSchema = s }
}

// WithErrorHandler sets the node's own error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(n *Node) { n.onError = h }
}
