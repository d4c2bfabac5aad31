// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagsFromParams returns a flag set named name whose flags are bound
// to the tagged fields of params, a pointer to a struct. Invalid params
// are a programming error and panic.
//
//	var params splitParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("split", &params) },
//	    Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
//	        // params is populated here
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// flagTags is the parsed form of a field's flag tags:
//
//	flag:"name" or flag:"name,n"   long name and optional shorthand
//	desc:"help text"
//	default:"value"                parsed by the field's type
type flagTags struct {
	name         string
	shorthand    string
	description  string
	defaultValue string
}

func parseFlagTags(field reflect.StructField) (flagTags, bool) {
	tag, ok := field.Tag.Lookup("flag")
	if !ok || tag == "" {
		return flagTags{}, false
	}
	name, shorthand, _ := strings.Cut(tag, ",")
	return flagTags{
		name:         name,
		shorthand:    shorthand,
		description:  field.Tag.Get("desc"),
		defaultValue: field.Tag.Get("default"),
	}, true
}

// BindFlags registers a flag on flagSet for every field of params that
// carries a flag tag. params must be a pointer to a struct. Fields may
// be string, bool, int or []string (comma-separated default);
// embedded structs contribute their own tagged fields.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindFields(value.Elem(), flagSet)
}

func bindFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(structValue.Type()) {
		if field.Anonymous {
			continue
		}
		tags, ok := parseFlagTags(field)
		if !ok {
			continue
		}
		target := structValue.FieldByIndex(field.Index)
		if !target.CanAddr() || !target.CanInterface() {
			return fmt.Errorf("field %s: not settable", field.Name)
		}
		if err := tags.bind(target.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func (tags flagTags) bind(target any, flagSet *pflag.FlagSet) error {
	switch pointer := target.(type) {
	case *string:
		flagSet.StringVarP(pointer, tags.name, tags.shorthand, tags.defaultValue, tags.description)
	case *bool:
		value, err := parseDefault(tags, false, strconv.ParseBool)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(pointer, tags.name, tags.shorthand, value, tags.description)
	case *int:
		value, err := parseDefault(tags, 0, strconv.Atoi)
		if err != nil {
			return err
		}
		flagSet.IntVarP(pointer, tags.name, tags.shorthand, value, tags.description)
	case *[]string:
		var value []string
		if tags.defaultValue != "" {
			value = strings.Split(tags.defaultValue, ",")
		}
		flagSet.StringSliceVarP(pointer, tags.name, tags.shorthand, value, tags.description)
	default:
		return fmt.Errorf("unsupported type %T for flag --%s", target, tags.name)
	}
	return nil
}

func parseDefault[T any](tags flagTags, zero T, parse func(string) (T, error)) (T, error) {
	if tags.defaultValue == "" {
		return zero, nil
	}
	value, err := parse(tags.defaultValue)
	if err != nil {
		return zero, fmt.Errorf("default for --%s: %w", tags.name, err)
	}
	return value, nil
}
