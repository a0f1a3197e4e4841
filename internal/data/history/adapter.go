package history

// Adapter bridges Store to the core RunJournal port and trims the journal
// to keep runs after every write.
type Adapter struct {
	store *Store
	keep  int
}

func NewAdapter(store *Store, keep int) *Adapter {
	return &Adapter{store: store, keep: keep}
}

func (a *Adapter) Record(run Run) error {
	if err := a.store.Record(run); err != nil {
		return err
	}
	_, err := a.store.Prune(a.keep)
	return err
}

func (a *Adapter) Recent(limit int) ([]Run, error) {
	return a.store.Recent(limit)
}

func (a *Adapter) Summarize() (Summary, error) {
	return a.store.Summarize()
}

func (a *Adapter) Close() error {
	return a.store.Close()
}
