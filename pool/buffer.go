package pool

import (
	"time"

	"github.com/google/btree"

	"bufpool-x/status"
)

// Buffer 是池中一条缓冲区记录，同时充当调用方持有的句柄。
// 句柄可以随意复制（复制的是引用而非内容）；存储始终归池所有，
// 调用方必须显式 Release，否则该槽位将永久处于占用状态。
type Buffer struct {
	id         uint64
	allocated  int
	dataSize   int
	inUse      bool
	usageCount uint64
	lastUsed   time.Time
	storage    []byte
}

// Less 按 (容量, id) 升序排列，供 btree 做下界查找。
func (b *Buffer) Less(than btree.Item) bool {
	o := than.(*Buffer)
	if b.allocated != o.allocated {
		return b.allocated < o.allocated
	}
	return b.id < o.id
}

// ID 返回记录编号（创建时单调分配）。
func (b *Buffer) ID() uint64 { return b.id }

// Bytes 返回当前持有者请求的那一段存储（长度为 Size）。
// 复用的缓冲区不会清零，超出已写入部分的内容是上一个持有者的残留。
func (b *Buffer) Bytes() []byte { return b.storage[:b.dataSize] }

// Full 返回整块存储（长度为 Cap）。
func (b *Buffer) Full() []byte { return b.storage }

// Size 返回当前持有者请求的字节数。
func (b *Buffer) Size() int { return b.dataSize }

// Cap 返回分配容量，创建后不再变化。
func (b *Buffer) Cap() int { return b.allocated }

// UsageCount 返回该记录被取用的累计次数。
func (b *Buffer) UsageCount() uint64 { return b.usageCount }

// LastUsed 返回最近一次归还的时间，仅在空闲时有意义。
func (b *Buffer) LastUsed() time.Time { return b.lastUsed }

func (b *Buffer) status() status.BufferStatus {
	switch {
	case b.storage == nil:
		return status.BufferEvicted
	case b.inUse:
		return status.BufferInUse
	default:
		return status.BufferFree
	}
}

// drop 释放存储并清空元数据，存储交还给 GC。
func (b *Buffer) drop() {
	b.inUse = false
	b.dataSize = 0
	b.allocated = 0
	b.storage = nil
	b.lastUsed = time.Time{}
}
