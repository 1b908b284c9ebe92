package core

import "time"

// Recorder receives engine measurements. internal/metrics provides the Prometheus implementation.
type Recorder interface {
	ObserveOperation(op, status string, d time.Duration)
	TypeCacheHit()
	TypeCacheMiss()
	ObjectsCreated(kind string, n int)
	ObjectsDeleted(kind string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) TypeCacheHit()                                  {}
func (nopRecorder) TypeCacheMiss()                                 {}
func (nopRecorder) ObjectsCreated(string, int)                     {}
func (nopRecorder) ObjectsDeleted(string, int)                     {}
