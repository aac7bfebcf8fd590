package document

// Reopen replaces old with a document parsed from path.
//
// The new document is built first. If that fails the error is returned
// unchanged and old is left alive and owned by the caller. On success the
// new document takes over old's render arguments, options and subscribers,
// old is disposed, and subscribers receive a Change with Reopened set. The
// new document starts without a layout; the next render builds it.
func Reopen(old *Document, path string) (*Document, error) {
	if old.disposed {
		return nil, errDisposed()
	}

	nd, err := Open(old.eng, path,
		WithRenderArguments(old.args),
		WithPipeline(old.opts.pipeline),
		WithLogger(old.opts.logger),
	)
	if err != nil {
		return nil, err
	}

	nd.subs = old.subs
	old.subs = &subscribers{}
	old.Dispose()

	nd.opts.logger.Debug("reopened document", "old", old.id, "doc", nd.id, "path", path)
	nd.emit(Change{Doc: nd, AffectsLayout: true, Reopened: true})
	return nd, nil
}
