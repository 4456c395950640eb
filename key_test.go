package grove

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyIdentity(t *testing.T) {
	require.Equal(t, KeyOf[int](), TypeKey(reflect.TypeFor[int]()))
	require.NotEqual(t, KeyOf[int](), KeyOf[int64]())

	require.Equal(t, thingOf.Of(payloadKey), thingOf.Of(KeyOf[magicPayload]()))
	require.NotEqual(t, thingOf.Of(payloadKey), runnerOf.Of(payloadKey))

	// generics with the same name are still distinct definitions
	other := NewGeneric("Thing", 1)
	require.NotEqual(t, thingOf.Of(payloadKey), other.Of(payloadKey))

	require.Equal(t, ListOf(KeyOf[int]()), ListOf(KeyOf[int]()))
	require.NotEqual(t, ListOf(KeyOf[int]()), KeyOf[[]int]())

	require.True(t, Key{}.IsZero())
	require.False(t, KeyOf[int]().IsZero())
}

func TestKeyString(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{KeyOf[int](), "int"},
		{KeyOf[*testConfig](), "*grove.testConfig"},
		{thingOf.Of(payloadKey), "Thing[grove.magicPayload]"},
		{runnerOf.Of(thingOf.Of(KeyOf[int]())), "ThingRunner[Thing[int]]"},
		{ListOf(KeyOf[string]()), "[]string"},
		{Param(1), "T1"},
		{runnerOf.Open(), "ThingRunner[T0]"},
		{KeyOf[int]().Named("port"), "int@port"},
		{KeyOf[int]().Named("port").Named("size"), "int@size"},
		{Key{}, "<zero key>"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, tc.key.String())
		})
	}
}

func TestKeyNamed(t *testing.T) {
	plain := KeyOf[*testLogger]()
	named := plain.Named("audit")

	require.NotEqual(t, plain, named)
	require.Equal(t, named, plain.Named("audit"))
	require.Equal(t, "audit", named.Name())
	require.Equal(t, plain, named.Named(""))
	require.Equal(t, plain.Type(), named.Type())
}

func TestKeyAccessors(t *testing.T) {
	k := runnerOf.Of(payloadKey)
	require.Same(t, runnerOf, k.Generic())
	require.Equal(t, []Key{payloadKey}, k.Args())
	require.Nil(t, k.Type())
	require.False(t, k.IsOpen())
	require.False(t, k.IsList())

	l := ListOf(k)
	require.True(t, l.IsList())
	require.Equal(t, k, l.Elem())

	open := runnerOf.Open()
	require.True(t, open.IsOpen())
	require.True(t, ListOf(open).IsOpen())
}

func TestKeySubstitute(t *testing.T) {
	pairOf := NewGeneric("Pair", 2)
	open := ListOf(thingOf.Of(pairOf.Of(Param(1), Param(0))))

	closed := open.substitute([]Key{KeyOf[int](), KeyOf[string]()})
	require.Equal(t, ListOf(thingOf.Of(pairOf.Of(KeyOf[string](), KeyOf[int]()))), closed)
	require.False(t, closed.IsOpen())

	// names on placeholders and on type arguments survive
	require.Equal(t,
		KeyOf[int]().Named("x"),
		Param(0).Named("x").substitute([]Key{KeyOf[int]()}),
	)
	require.Equal(t,
		KeyOf[int]().Named("y"),
		Param(0).substitute([]Key{KeyOf[int]().Named("y")}),
	)

	require.Equal(t, 1, open.maxParam())
	require.Equal(t, -1, KeyOf[int]().maxParam())
}

func TestKeyPanics(t *testing.T) {
	expectBadDefinition := func(t *testing.T, fn func()) {
		t.Helper()
		defer func() {
			p := recover()
			require.NotNil(t, p)
			err, ok := p.(error)
			require.True(t, ok, "panic value %v is not an error", p)
			require.True(t, errors.Is(err, ErrBadDefinition), "unexpected error %v", err)
		}()
		fn()
	}

	t.Run("arity mismatch", func(t *testing.T) {
		expectBadDefinition(t, func() { thingOf.Of(KeyOf[int](), KeyOf[string]()) })
	})
	t.Run("zero arity generic", func(t *testing.T) {
		expectBadDefinition(t, func() { NewGeneric("Nothing", 0) })
	})
	t.Run("negative param", func(t *testing.T) {
		expectBadDefinition(t, func() { Param(-1) })
	})
	t.Run("list of zero key", func(t *testing.T) {
		expectBadDefinition(t, func() { ListOf(Key{}) })
	})
}

func TestGenericString(t *testing.T) {
	require.Equal(t, "Thing[T0]", thingOf.String())
	require.Equal(t, "Pair[T0, T1]", NewGeneric("Pair", 2).String())
	require.Equal(t, 2, NewGeneric("Pair", 2).Arity())
	require.Equal(t, "ThingRunner", runnerOf.Name())
}

func TestKeyConcurrentIntern(t *testing.T) {
	const goroutines = 50
	keys := make([][]Key, goroutines)

	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 5 {
				keys[i] = append(keys[i], runnerOf.Of(KeyOf[int]()).Named(fmt.Sprintf("shard%d", j)))
			}
		}()
	}
	wg.Wait()

	seen := make(map[keyID]struct{})
	for j := range 5 {
		for i := range goroutines {
			require.Equal(t, keys[0][j], keys[i][j])
		}
		seen[keys[0][j].id()] = struct{}{}
		require.Equal(t, fmt.Sprintf("ThingRunner[int]@shard%d", j), keys[0][j].String())
	}
	require.Len(t, seen, 5)
	require.Zero(t, Key{}.id())
}
