/*
 * Copyright (c) 2025 The BatchServe Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package batchserve

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/panjf2000/ants/v2"
	atom "go.uber.org/atomic"

	"github.com/batchserve/batchserve-worker-go/config"
	"github.com/batchserve/batchserve-worker-go/inference"
	bsactor "github.com/batchserve/batchserve-worker-go/internal/actor"
	actorcomm "github.com/batchserve/batchserve-worker-go/internal/actor/common"
	"github.com/batchserve/batchserve-worker-go/internal/batch"
	"github.com/batchserve/batchserve-worker-go/internal/common"
	"github.com/batchserve/batchserve-worker-go/internal/constants"
	"github.com/batchserve/batchserve-worker-go/internal/history"
	"github.com/batchserve/batchserve-worker-go/internal/metrics"
	"github.com/batchserve/batchserve-worker-go/internal/model"
	"github.com/batchserve/batchserve-worker-go/internal/server"
	"github.com/batchserve/batchserve-worker-go/logger"
	"github.com/batchserve/batchserve-worker-go/processor"
	"github.com/batchserve/batchserve-worker-go/stats"
	"github.com/batchserve/batchserve-worker-go/tracer"
)

var (
	worker *Worker
	err    error
	once   sync.Once
)

var _ bsactor.ModelLoader = &Worker{}

// Worker is the embedding facade. It owns the shared execution pool, the
// model registry, the control actor and the serving endpoints. One worker
// per process.
type Worker struct {
	cfg           *Config
	opts          *Options
	sharedPool    *ants.Pool
	registry      *model.Registry
	actorSystem   *actor.ActorSystem
	controlPid    *actor.PID
	healthServer  *server.HealthServer
	metricsServer *server.MetricsServer
	hostCancel    context.CancelFunc
	stopped       *atom.Bool
}

type Config struct {
	// WorkerName identifies this worker in logs and dispatch records.
	WorkerName string `json:"WorkerName"`
}

func (c *Config) IsValid() bool {
	if c == nil {
		return false
	}
	return c.WorkerName != ""
}

type Options struct{}

type Option func(*Options)

func WithWorkerConfig(cfg *config.WorkerConfig) Option {
	return func(opt *Options) {
		config.InitWorkerConfig(cfg)
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(opt *Options) {
		tracer.InitTracer(t)
	}
}

func GetWorker(cfg *Config, opts ...Option) (*Worker, error) {
	once.Do(func() {
		worker, err = newWorker(cfg, opts...)
	})
	return worker, err
}

func newWorker(cfg *Config, opts ...Option) (*Worker, error) {
	if !cfg.IsValid() {
		return nil, fmt.Errorf("invalid worker config, cfg=%+v", cfg)
	}

	options := new(Options)
	for _, opt := range opts {
		opt(options)
	}

	sharedPool, err := ants.NewPool(
		int(config.GetWorkerConfig().SharedPoolSize()),
		ants.WithExpiryDuration(constants.PoolExpiryDuration),
		ants.WithPanicHandler(func(i interface{}) {
			if r := recover(); r != nil {
				logger.Errorf("Panic happened in sharedPool, %v\n%s", r, debug.Stack())
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("init shared pool failed, err=%s", err.Error())
	}

	w := &Worker{
		cfg:        cfg,
		opts:       options,
		sharedPool: sharedPool,
		registry:   model.GetRegistry(),
		stopped:    atom.NewBool(false),
	}

	// Init actors
	actorSystem := actor.NewActorSystem()
	actorcomm.InitActorSystem(actorSystem)
	controlPid, err := bsactor.InitActors(actorSystem, w)
	if err != nil {
		return nil, fmt.Errorf("Init actors faild, err=%s. ", err.Error())
	}
	w.actorSystem = actorSystem
	w.controlPid = controlPid

	healthServer := server.NewHealthServer(config.GetWorkerConfig().HealthPort())
	if err := healthServer.Start(); err != nil {
		return nil, err
	}
	w.healthServer = healthServer

	if config.GetWorkerConfig().MetricsEnable() {
		metricsServer := server.NewMetricsServer(config.GetWorkerConfig().MetricsPort())
		if err := metricsServer.Start(); err != nil {
			return nil, err
		}
		w.metricsServer = metricsServer

		if config.GetWorkerConfig().HostMetricsEnable() {
			hostCtx, cancel := context.WithCancel(context.Background())
			w.hostCancel = cancel
			go metrics.GetHostSampler().Run(hostCtx)
		}
	}

	logger.Infof("BatchServe worker started, name=%s, healthPort=%d", cfg.WorkerName, config.GetWorkerConfig().HealthPort())
	return w, nil
}

// RegisterModel parses the config, builds the model with its instances
// and starts serving it. Returns the model name from the config.
func (w *Worker) RegisterModel(configText string, proc processor.Processor) (string, error) {
	result, err := w.actorSystem.Root.RequestFuture(w.controlPid, &actorcomm.LoadModelRequest{
		ConfigText: configText,
		Processor:  proc,
	}, config.GetWorkerConfig().ControlTimeout()).Result()
	if err != nil {
		return "", err
	}
	resp, ok := result.(*actorcomm.LoadModelResponse)
	if !ok {
		return "", fmt.Errorf("unexpected control response type %T", result)
	}
	if !resp.Success {
		return "", errors.New(resp.Message)
	}
	return resp.ModelName, nil
}

// UnregisterModel stops the model and fails whatever requests were still
// queued for it.
func (w *Worker) UnregisterModel(modelName string) error {
	result, err := w.actorSystem.Root.RequestFuture(w.controlPid, &actorcomm.UnloadModelRequest{
		ModelName: modelName,
	}, config.GetWorkerConfig().ControlTimeout()).Result()
	if err != nil {
		return err
	}
	resp, ok := result.(*actorcomm.UnloadModelResponse)
	if !ok {
		return fmt.Errorf("unexpected control response type %T", result)
	}
	if !resp.Success {
		return errors.New(resp.Message)
	}
	return nil
}

// Flush closes the open batching window of a model so queued requests
// dispatch without waiting out the delay.
func (w *Worker) Flush(modelName string) error {
	result, err := w.actorSystem.Root.RequestFuture(w.controlPid, &actorcomm.FlushModelRequest{
		ModelName: modelName,
	}, config.GetWorkerConfig().ControlTimeout()).Result()
	if err != nil {
		return err
	}
	resp, ok := result.(*actorcomm.FlushModelResponse)
	if !ok {
		return fmt.Errorf("unexpected control response type %T", result)
	}
	if !resp.Success {
		return errors.New(resp.Message)
	}
	return nil
}

// Stats reports a snapshot of one model, or of every model when
// modelName is empty.
func (w *Worker) Stats(modelName string) ([]*stats.ModelStats, error) {
	result, err := w.actorSystem.Root.RequestFuture(w.controlPid, &actorcomm.QueryStatsRequest{
		ModelName: modelName,
	}, config.GetWorkerConfig().ControlTimeout()).Result()
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*actorcomm.QueryStatsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected control response type %T", result)
	}
	if !resp.Success {
		return nil, errors.New(resp.Message)
	}
	return resp.Stats, nil
}

// Submit enqueues a prebuilt request without waiting for its response.
// The caller reads the outcome from req.ResponseCh().
func (w *Worker) Submit(req *inference.Request) error {
	m, ok := w.registry.Find(req.ModelName())
	if !ok {
		return fmt.Errorf("model %s is not registered", req.ModelName())
	}
	return m.Submit(req)
}

// Infer submits one request and waits for its response. The wait is
// bounded by ctx; the request itself keeps running if ctx expires first.
func (w *Worker) Infer(ctx context.Context, modelName string, input []byte, opts ...inference.RequestOption) (*inference.Response, error) {
	req := inference.NewRequest(modelName, input, opts...)
	if err := w.Submit(req); err != nil {
		return nil, err
	}
	select {
	case resp := <-req.ResponseCh():
		if resp.Err() != nil {
			return resp, resp.Err()
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown unloads every model, then stops the control plane and the
// serving endpoints. Blocks until models are drained or ctx expires.
// The worker cannot be restarted afterwards.
func (w *Worker) Shutdown(ctx context.Context) {
	if !w.stopped.CAS(false, true) {
		return
	}
	logger.Infof("worker %s shutting down", w.cfg.WorkerName)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, name := range w.registry.Names() {
			if err := w.UnregisterModel(name); err != nil {
				logger.Warnf("unregister model=%s during shutdown failed, err=%s", name, err.Error())
			}
		}
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warnf("shutdown proceeding with models still draining, err=%s", ctx.Err().Error())
	}

	w.actorSystem.Root.Stop(w.controlPid)
	if w.hostCancel != nil {
		w.hostCancel()
	}
	if w.metricsServer != nil {
		w.metricsServer.Stop()
	}
	w.healthServer.Stop()
	if config.GetWorkerConfig().DispatchHistoryEnable() {
		if err := history.GetMemoryStore().Close(); err != nil {
			logger.Warnf("close history store failed, err=%s", err.Error())
		}
	}
	w.sharedPool.Release()
	logger.Infof("worker %s shutdown complete", w.cfg.WorkerName)
}

// LoadModel implements the control plane's ModelLoader. It runs on the
// control actor goroutine; use RegisterModel instead of calling it
// directly.
func (w *Worker) LoadModel(configText string, proc processor.Processor) (*model.Model, error) {
	cfg, err := model.ParseConfig(configText)
	if err != nil {
		return nil, err
	}

	var modelOpts []model.Option
	if config.GetWorkerConfig().DispatchHistoryEnable() {
		handlerPool := batch.GetHistoryEventHandlerPool()
		if !handlerPool.Contains(cfg.Name()) {
			eventQueue := batch.NewEventQueue(config.GetWorkerConfig().EventQueueSize())
			handlerPool.Start(cfg.Name(), batch.NewHistoryEventHandler(
				cfg.Name(), 1, constants.EventHandlerPoolSizeDefault,
				config.GetWorkerConfig().EventBatchSize(),
				eventQueue,
				history.GetMemoryStore(),
				config.GetWorkerConfig().HistoryKeepMax()))
		}
		modelOpts = append(modelOpts, model.WithEventSink(func(event *common.DispatchEvent) {
			if !handlerPool.SubmitEvent(event.GetModelName(), event) {
				logger.Warnf("dispatch event dropped, no history handler for model=%s", event.GetModelName())
			}
		}))
	}

	m := model.NewModel(cfg, proc, modelOpts...)
	if err := w.registry.Register(m); err != nil {
		return nil, err
	}
	if err := m.Start(w.sharedPool); err != nil {
		w.registry.Unregister(cfg.Name())
		return nil, err
	}
	w.healthServer.SetServing(cfg.Name())
	logger.Infof("model loaded, name=%s, version=%d, instances=%d", cfg.Name(), cfg.Version(), cfg.InstanceCount())
	return m, nil
}

// UnloadModel implements the control plane's ModelLoader. It runs on the
// control actor goroutine; use UnregisterModel instead of calling it
// directly.
func (w *Worker) UnloadModel(modelName string) error {
	m, ok := w.registry.Find(modelName)
	if !ok {
		return fmt.Errorf("model %s is not registered", modelName)
	}
	w.healthServer.SetNotServing(modelName)
	m.Stop()
	w.registry.Unregister(modelName)
	batch.GetHistoryEventHandlerPool().Stop(modelName)
	logger.Infof("model unloaded, name=%s", modelName)
	return nil
}

// FlushModel implements the control plane's ModelLoader.
func (w *Worker) FlushModel(modelName string) error {
	m, ok := w.registry.Find(modelName)
	if !ok {
		return fmt.Errorf("model %s is not registered", modelName)
	}
	return m.Flush()
}

// ModelStats implements the control plane's ModelLoader.
func (w *Worker) ModelStats(modelName string) ([]*stats.ModelStats, error) {
	if modelName != "" {
		m, ok := w.registry.Find(modelName)
		if !ok {
			return nil, fmt.Errorf("model %s is not registered", modelName)
		}
		return []*stats.ModelStats{m.Stats()}, nil
	}
	snapshots := make([]*stats.ModelStats, 0, w.registry.Len())
	for _, name := range w.registry.Names() {
		if m, ok := w.registry.Find(name); ok {
			snapshots = append(snapshots, m.Stats())
		}
	}
	return snapshots, nil
}
