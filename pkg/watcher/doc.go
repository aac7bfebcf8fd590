// Package watcher follows a file that another process rewrites.
//
// A [Watcher] receives filesystem events from a [Source], keeps those that
// name the watched file, and marshals a check onto the owner loop. The check
// compares the file's modification time with the last confirmed one and,
// when it differs, calls the [Handler]. The handler either accepts the
// change, which confirms the new timestamp, or asks for a retry, which
// schedules a single re-check after [DefaultRetryDelay]. A burst of events
// for a write that already was accepted therefore produces one notification.
//
//	w, err := watcher.New(path, owner, func(path string) watcher.Result {
//	    nd, err := document.Reopen(doc, path)
//	    if errors.IsTransient(err) {
//	        return watcher.Retry
//	    }
//	    ...
//	    return watcher.Accept
//	})
//	src, err := watcher.NewFSSource(filepath.Dir(path))
//	defer src.Close()
//	go w.Run(ctx, src)
//	defer w.Close()
package watcher
