package common

import (
	"context"
	"fmt"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var dialect = g.Dialect("mysql")

// QueryArg 通用列表查询参数
type QueryArg struct {
	Db      *sqlx.DB
	Table   string
	Fields  []interface{}
	Ex      []exp.Expression
	Order   []exp.OrderedExpression
	GroupBy []interface{}
	Offset  uint
	Limit   uint
}

// EnumFields 从结构体 db tag 枚举查询字段
func EnumFields(obj interface{}) []interface{} {
	rt := reflect.TypeOf(obj)
	if rt.Kind() != reflect.Struct {
		return nil
	}

	var fields []interface{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if field := f.Tag.Get("db"); field != "" && field != "-" {
			fields = append(fields, field)
		}
	}
	return fields
}

// SelectAllCtx 查询多条记录
func SelectAllCtx(ctx context.Context, data interface{}, args QueryArg) error {
	if args.Db == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}

	ds := dialect.Select(args.Fields...).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.GroupBy) > 0 {
		ds = ds.GroupBy(args.GroupBy...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}

	query, qargs, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if err := args.Db.SelectContext(ctx, data, query, qargs...); err != nil {
		Printf("select %s err: %s\n", args.Table, err.Error())
		return err
	}
	return nil
}

// CountInfo 按条件统计行数
func CountInfo(ctx context.Context, db *sqlx.DB, table, name string, ex ...exp.Expression) (int64, error) {
	var count int64
	query, qargs, err := dialect.Select(g.COUNT(name)).From(table).Where(ex...).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	if err := db.GetContext(ctx, &count, query, qargs...); err != nil {
		Printf("count %s err: %s\n", table, err.Error())
		return 0, err
	}
	return count, nil
}

// SumInfo 按条件求和，空集返回 0
func SumInfo(ctx context.Context, db *sqlx.DB, table, name string, ex ...exp.Expression) (float64, error) {
	var sum float64
	query, qargs, err := dialect.Select(g.COALESCE(g.SUM(name), 0)).From(table).Where(ex...).Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	if err := db.GetContext(ctx, &sum, query, qargs...); err != nil {
		Printf("sum %s err: %s\n", table, err.Error())
		return 0, err
	}
	return sum, nil
}
