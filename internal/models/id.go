package models

import (
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq atomic.Uint64

// NewLocalID returns a timestamp-based id for items that have neither a backend id nor an isbn
func NewLocalID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), idSeq.Add(1))
}
