package api

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimalabs/genflow/pkg/models"
)

// requestLogger logs one line per request in the engine's bracketed style.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[api] %s %s -> %d in %v",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond))
	}
}

// streamEncoder writes stream events as newline-delimited JSON.
type streamEncoder struct {
	w io.Writer
}

func newStreamEncoder(w io.Writer) *streamEncoder {
	return &streamEncoder{w: w}
}

func (e *streamEncoder) encode(ev models.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = e.w.Write(data)
	return err
}
