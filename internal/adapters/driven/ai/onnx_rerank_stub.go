//go:build !cgo
// +build !cgo

package ai

import (
	"errors"

	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// NewONNXRerankModel returns an error when built without CGO
// (see onnx_rerank_model.go for the real implementation).
func NewONNXRerankModel(_ string, _, _ int) (driven.RerankModel, error) {
	return nil, errors.New("ONNX rerank model requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}
