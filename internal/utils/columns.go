package utils

import (
	"reflect"
)

var ColumnTag = "db"

// StructTagValues returns the column names of input in field order.
func StructTagValues(input any) []string {
	var result []string
	eachColumn(input, func(column string, _ reflect.Value) {
		result = append(result, column)
	})
	return result
}

// StructToMap maps each column of input to its field value, for use with
// squirrel's SetMap.
func StructToMap(input any) map[string]any {
	result := make(map[string]any)
	eachColumn(input, func(column string, value reflect.Value) {
		result[column] = value.Interface()
	})
	return result
}

// eachColumn visits every exported field carrying a column tag. Fields
// tagged "-" are skipped.
func eachColumn(input any, fn func(column string, value reflect.Value)) {
	value := reflect.ValueOf(input)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	typ := value.Type()
	for i := 0; i < value.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		column := field.Tag.Get(ColumnTag)
		if column == "" || column == "-" {
			continue
		}

		fn(column, value.Field(i))
	}
}
