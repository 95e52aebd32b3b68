package mutable_test

import (
	"fmt"

	"github.com/dudk/clip/mutable"
)

type mutableType struct {
	mutable.Context
	parameter int
}

func (v *mutableType) setParameter(value int) mutable.Mutation {
	return v.Context.Mutate(func() error {
		v.parameter = value
		return nil
	})
}

func Example_mutation() {
	// create new mutable component
	component := &mutableType{
		Context: mutable.Mutable(),
	}
	q := mutable.NewQueue(1)
	fmt.Println(component.parameter)

	// push new mutation
	_ = q.Push(component.setParameter(10))
	fmt.Println(component.parameter)

	// apply pending mutations
	_ = q.Apply()
	fmt.Println(component.parameter)

	// Output:
	// 0
	// 0
	// 10
}
