package vision

import (
	"context"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
)

// Request carries the prepared inputs for one extraction call. ImagePNG is
// the first page rendered and preprocessed as PNG; Text is the document's
// text layer when a usable one exists.
type Request struct {
	ImagePNG []byte
	Text     string
	Filename string
}

// Extractor is the interface the pipeline depends on. Implementations
// return the loosely typed extraction plus the raw JSON the model emitted.
type Extractor interface {
	ExtractBill(ctx context.Context, req Request) (*entity.RawExtraction, []byte, error)
}
