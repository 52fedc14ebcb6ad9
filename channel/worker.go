package channel

import (
	"context"

	"github.com/keyhole-db/keyhole/engine"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/logger"
	"github.com/keyhole-db/keyhole/utils/safego"
)

// worker is the long-lived background execution context queries run on. It
// is reused across queries and restarted, never interrupted, on
// cancellation: the underlying read offers no mid-flight abort, so a clean
// state for the next request is guaranteed by discarding the whole context.
type worker struct {
	db       *store.Database
	endpoint *PipeEndpoint
	requests chan types.QueryRequest
	quit     chan struct{}
}

// spawnWorker starts a worker and returns the caller-side transport end.
func spawnWorker(db *store.Database, lossy bool) (*PipeEndpoint, *worker) {
	callerEnd, workerEnd := NewPipe(lossy)
	w := &worker{
		db:       db,
		endpoint: workerEnd,
		requests: make(chan types.QueryRequest, 1),
		quit:     make(chan struct{}),
	}

	workerEnd.OnMessageOfType(types.QueryDataMessage, func(msg types.Message) {
		if msg.Params == nil {
			return
		}
		// one query in flight by contract; anything beyond that is dropped
		select {
		case w.requests <- *msg.Params:
		default:
			logger.Warnf("worker dropped a request posted while one was in flight")
		}
	})

	// a panicking query must not take the execution context down for good;
	// the loop comes back and keeps serving later requests
	safego.RunWithRestart(w.run)
	return callerEnd, w
}

func (w *worker) run() {
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			w.serve(req)
		}
	}
}

func (w *worker) serve(req types.QueryRequest) {
	result, err := engine.QueryData(context.Background(), w.db, req)
	if err != nil {
		if postErr := w.endpoint.Post(types.Message{Type: types.QueryErrorMessage, Target: req.Target(), Error: err.Error()}); postErr != nil {
			logger.Debugf("worker result lost, transport gone: %s", postErr)
		}
		return
	}

	if req.Encode {
		result.Data = engine.Encode(result.Data)
		result.Encoded = true
	}
	if postErr := w.endpoint.Post(types.Message{Type: types.QueryResultMessage, Target: req.Target(), Result: result}); postErr != nil {
		logger.Debugf("worker result lost, transport gone: %s", postErr)
	}
}

// terminate abandons the worker. An in-flight read keeps running to its end
// and its result dies on the closed transport.
func (w *worker) terminate() {
	close(w.quit)
	w.endpoint.Close()
}
