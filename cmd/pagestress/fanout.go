package main

import "github.com/hupe1980/pagealloc"

// fanout forwards every event to each collector in turn.
type fanout []pagealloc.MetricsCollector

func (f fanout) RecordAlloc(class int, size uintptr, err error) {
	for _, c := range f {
		c.RecordAlloc(class, size, err)
	}
}

func (f fanout) RecordFree(class int, reclaimed bool) {
	for _, c := range f {
		c.RecordFree(class, reclaimed)
	}
}

func (f fanout) RecordArenaCreated(class int) {
	for _, c := range f {
		c.RecordArenaCreated(class)
	}
}

func (f fanout) RecordSeal(class int, reclaimed bool) {
	for _, c := range f {
		c.RecordSeal(class, reclaimed)
	}
}
