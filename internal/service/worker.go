package service

// TaskRunner 在后台执行写路径派发的异步任务（向量索引的写入与删除）。
// 调用方只投递不等待，任务结果仅通过日志观察。
type TaskRunner struct {
	tasks chan func()
	done  chan struct{}
}

// NewTaskRunner 创建并启动后台任务执行器。
func NewTaskRunner(buffer int) *TaskRunner {
	if buffer <= 0 {
		buffer = 64
	}
	r := &TaskRunner{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *TaskRunner) loop() {
	defer close(r.done)
	for task := range r.tasks {
		task()
	}
}

// Submit 投递任务；队列满时退化为独立 goroutine，绝不阻塞请求路径。
func (r *TaskRunner) Submit(task func()) {
	if task == nil {
		return
	}
	select {
	case r.tasks <- task:
	default:
		go task()
	}
}

// Close 停止接收新任务并等待队列中的任务执行完毕。
func (r *TaskRunner) Close() {
	close(r.tasks)
	<-r.done
}
