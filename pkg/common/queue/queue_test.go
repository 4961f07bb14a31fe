// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"
)

type QueueTestSuite struct {
	suite.Suite
}

func TestQueue(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (suite *QueueTestSuite) TestEnqueueDequeueIntSuccess() {
	q := NewQueue[int]("test_queue")
	suite.Equal("test_queue", q.GetName())

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	suite.Equal(100, q.Length())

	for i := 0; i < 100; i++ {
		item, err := q.Dequeue()
		suite.NoError(err)
		suite.Equal(i, item)
	}
	suite.Equal(0, q.Length())
}

func (suite *QueueTestSuite) TestEnqueueDequeueStringSuccess() {
	q := NewQueue[string]("test_queue")
	for i := 0; i < 10; i++ {
		q.Enqueue(strconv.Itoa(i))
	}
	for i := 0; i < 10; i++ {
		item, err := q.Dequeue()
		suite.NoError(err)
		val, err := strconv.Atoi(item)
		suite.NoError(err)
		suite.Equal(i, val)
	}
}

type TaskInfo struct {
	InstanceID int
	Cores      int
}

func (suite *QueueTestSuite) TestPopFirstSkipsNonMatching() {
	q := NewQueue[*TaskInfo]("test_queue")
	for i := 0; i < 5; i++ {
		q.Enqueue(&TaskInfo{InstanceID: i, Cores: 4 - i})
	}

	// first item with at most two cores is instance 2
	item, ok := q.PopFirst(func(t *TaskInfo) bool { return t.Cores <= 2 })
	suite.True(ok)
	suite.Equal(2, item.InstanceID)
	suite.Equal(4, q.Length())

	head, ok := q.Peek()
	suite.True(ok)
	suite.Equal(0, head.InstanceID)

	var ids []int
	for _, t := range q.Items() {
		ids = append(ids, t.InstanceID)
	}
	suite.Equal([]int{0, 1, 3, 4}, ids)

	_, ok = q.PopFirst(func(t *TaskInfo) bool { return t.Cores > 10 })
	suite.False(ok)
	suite.Equal(4, q.Length())
}

func (suite *QueueTestSuite) TestFindAndRemove() {
	q := NewQueue[*TaskInfo]("test_queue")
	for i := 0; i < 4; i++ {
		q.Enqueue(&TaskInfo{InstanceID: i, Cores: i % 2})
	}

	item, pos, ok := q.Find(func(t *TaskInfo) bool { return t.Cores == 1 })
	suite.True(ok)
	suite.Equal(1, item.InstanceID)
	// Find does not remove
	suite.Equal(4, q.Length())

	suite.True(q.Remove(pos))
	suite.False(q.Remove(pos))
	suite.Equal(3, q.Length())

	item, _, ok = q.Find(func(t *TaskInfo) bool { return t.Cores == 1 })
	suite.True(ok)
	suite.Equal(3, item.InstanceID)

	_, pos, ok = q.Find(func(t *TaskInfo) bool { return t.Cores == 5 })
	suite.False(ok)
	suite.False(q.Remove(pos))
}

func (suite *QueueTestSuite) TestDequeueEmpty() {
	q := NewQueue[int]("empty")
	_, err := q.Dequeue()
	suite.Error(err)
	suite.Equal("queue empty is empty", err.Error())

	_, ok := q.Peek()
	suite.False(ok)
	suite.Empty(q.Items())
}

func (suite *QueueTestSuite) TestReuseAfterDrain() {
	q := NewQueue[int]("reuse")
	q.Enqueue(1)
	q.Enqueue(2)
	_, _ = q.Dequeue()
	_, _ = q.Dequeue()

	q.Enqueue(3)
	item, err := q.Dequeue()
	suite.NoError(err)
	suite.Equal(3, item)
}
