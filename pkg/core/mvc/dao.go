package mvc

import (
	"context"
)

// IBaseDao 定义通用的数据访问接口
type IBaseDao[T any] interface {
	// Create 创建记录
	Create(ctx context.Context, entity *T) error
	// CreateBatch 批量创建记录
	CreateBatch(ctx context.Context, entities []*T) error
	// DeleteById 根据ID删除记录
	DeleteById(ctx context.Context, id interface{}) error
	// DeleteByIds 根据ID批量删除记录
	DeleteByIds(ctx context.Context, ids []interface{}) (int64, error)
	// DeleteByColumn 根据指定列删除记录
	DeleteByColumn(ctx context.Context, column string, value interface{}) error
	// DeleteByMap 根据多个条件删除记录
	DeleteByMap(ctx context.Context, conditions map[string]interface{}) error
	// UpdateById 根据ID更新记录
	UpdateById(ctx context.Context, id interface{}, entity *T) (int64, error)
	// UpdateByIds 根据ID批量更新记录
	UpdateByIds(ctx context.Context, ids []interface{}, entity *T) (int64, error)
	// UpdateByColumn 根据指定列更新记录
	UpdateByColumn(ctx context.Context, column string, value interface{}, entity *T) (int64, error)
	// UpdateByMap 根据多个条件更新记录
	UpdateByMap(ctx context.Context, conditions map[string]interface{}, entity *T) (int64, error)
	// FindById 根据ID查询记录
	FindById(ctx context.Context, id interface{}) (*T, error)
	// FindByIds 根据ID批量查询记录
	FindByIds(ctx context.Context, ids []interface{}) ([]*T, error)
	// FindByColumn 根据指定列查询记录
	FindByColumn(ctx context.Context, column string, value interface{}) ([]*T, error)
	// FindOneByColumn 根据指定列查询单条记录
	FindOneByColumn(ctx context.Context, column string, value interface{}) (*T, error)
	// FindByMap 根据多个条件查询记录
	FindByMap(ctx context.Context, conditions map[string]interface{}) ([]*T, error)
	// FindOneByMap 根据多个条件查询单条记录
	FindOneByMap(ctx context.Context, conditions map[string]interface{}) (*T, error)
	// FindList 查询列表
	FindList(ctx context.Context, condition *T) ([]*T, error)
	// FindPage 分页查询
	FindPage(ctx context.Context, page *Page, condition *T) ([]*T, int64, error)
	// FindPageByMap 分页查询
	FindPageByMap(ctx context.Context, page *Page, condition map[string]interface{}) ([]*T, int64, error)
	// Count 统计记录数
	Count(ctx context.Context, condition *T) (int64, error)
	// CountByMap 根据多个条件统计记录数
	CountByMap(ctx context.Context, conditions map[string]interface{}) (int64, error)
	// Exists 判断记录是否存在
	Exists(ctx context.Context, condition *T) (bool, error)
	// ExistsByMap 根据多个条件判断记录是否存在
	ExistsByMap(ctx context.Context, conditions map[string]interface{}) (bool, error)
	// WithTx 使用事务创建临时的IBaseDao实例
	WithTx(tx interface{}) IBaseDao[T]
}
