package storage

// Recorder buffers the transitions of one episode and writes them in
// batches.
type Recorder struct {
	store     *Store
	episodeID string
	batch     int
	buf       []Transition
}

// NewRecorder starts an episode and returns a recorder for it.
func (s *Store) NewRecorder(variant, player string, seed int64, batch int) (*Recorder, error) {
	id, err := s.StartEpisode(variant, player, seed)
	if err != nil {
		return nil, err
	}
	if batch <= 0 {
		batch = 256
	}
	return &Recorder{store: s, episodeID: id, batch: batch}, nil
}

// EpisodeID returns the ID of the recorded episode.
func (r *Recorder) EpisodeID() string {
	return r.episodeID
}

// Record queues a transition, flushing when the batch is full.
func (r *Recorder) Record(t Transition) error {
	t.EpisodeID = r.episodeID
	r.buf = append(r.buf, t)
	if len(r.buf) >= r.batch {
		return r.Flush()
	}
	return nil
}

// Flush writes queued transitions.
func (r *Recorder) Flush() error {
	if err := r.store.RecordSteps(r.buf); err != nil {
		return err
	}
	r.buf = r.buf[:0]
	return nil
}

// Finish flushes and writes the final tally.
func (r *Recorder) Finish(result EpisodeResult) error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.store.FinishEpisode(r.episodeID, result)
}
