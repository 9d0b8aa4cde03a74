package dal

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// BaseRepository 基础仓储实现, 未找到记录时返回 nil, nil
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository 使用指定DB创建基础仓储
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// DB 获取数据库实例
func (r *BaseRepository[T]) DB() *gorm.DB {
	return r.db
}

// WithTx 绑定到事务
func (r *BaseRepository[T]) WithTx(tx *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: tx}
}

func (r *BaseRepository[T]) query(ctx context.Context, opts []QueryOption) *gorm.DB {
	var entity T
	db := r.db.WithContext(ctx).Model(&entity)
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// Create 创建实体
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// CreateBatch 批量创建
func (r *BaseRepository[T]) CreateBatch(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entities, 100).Error
}

// UpdateFields 按条件更新指定字段, 返回受影响行数
func (r *BaseRepository[T]) UpdateFields(ctx context.Context, fields map[string]any, opts ...QueryOption) (int64, error) {
	res := r.query(ctx, opts).Updates(fields)
	return res.RowsAffected, res.Error
}

// DeleteWhere 按条件删除
func (r *BaseRepository[T]) DeleteWhere(ctx context.Context, opts ...QueryOption) error {
	var entity T
	db := r.db.WithContext(ctx)
	for _, opt := range opts {
		db = opt(db)
	}
	return db.Delete(&entity).Error
}

// FindByID 根据ID查找
func (r *BaseRepository[T]) FindByID(ctx context.Context, id int64, opts ...QueryOption) (*T, error) {
	return r.FindOne(ctx, append(opts, Where("id = ?", id))...)
}

// FindOne 查找单个实体
func (r *BaseRepository[T]) FindOne(ctx context.Context, opts ...QueryOption) (*T, error) {
	var entity T
	if err := r.query(ctx, opts).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// FindAll 查找所有符合条件的实体
func (r *BaseRepository[T]) FindAll(ctx context.Context, opts ...QueryOption) ([]T, error) {
	var entities []T
	if err := r.query(ctx, opts).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Pluck 查询单列
func Pluck[T any, V any](ctx context.Context, r *BaseRepository[T], column string, opts ...QueryOption) ([]V, error) {
	var values []V
	if err := r.query(ctx, opts).Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// Count 统计数量
func (r *BaseRepository[T]) Count(ctx context.Context, opts ...QueryOption) (int64, error) {
	var count int64
	if err := r.query(ctx, opts).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Transaction 执行事务
func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
