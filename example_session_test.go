package jackalope_test

import (
	"context"
	"errors"
	"fmt"

	jackalope "github.com/jackalope/jackalope.go"
	"github.com/jackalope/jackalope.go/contrib/testenv"
)

func ExampleSession_Save() {
	ctx := context.Background()
	s := testenv.MustNew("", "/blog")
	defer s.Repository().Close(ctx) //nolint:errcheck
	defer s.Logout()

	root, err := s.RootNode(ctx)
	if err != nil {
		panic(err)
	}
	// Without an explicit type the child gets the default of its definition.
	blog, err := root.AddNode(ctx, "blog")
	if err != nil {
		panic(err)
	}
	for _, name := range []string{"first", "second", "third"} {
		post, err := blog.AddNode(ctx, name)
		if err != nil {
			panic(err)
		}
		if _, err := post.SetProperty("title", "Post "+name); err != nil {
			panic(err)
		}
	}
	if err := blog.OrderBefore("third", "first"); err != nil {
		panic(err)
	}
	if err := s.Save(ctx); err != nil {
		panic(err)
	}

	fmt.Println(blog.PrimaryTypeName())
	fmt.Println(blog.ChildNames())
	title, err := s.Property(ctx, "/blog/third/title")
	if err != nil {
		panic(err)
	}
	text, err := title.String()
	if err != nil {
		panic(err)
	}
	fmt.Println(text)

	// Output:
	// nt:unstructured
	// [third first second]
	// Post third
}

func ExampleNode_AddNode_constraintViolation() {
	ctx := context.Background()
	repo, err := jackalope.Connect(ctx, "mem://")
	if err != nil {
		panic(err)
	}
	defer repo.Close(ctx)

	s, err := repo.Login(ctx, nil, "")
	if err != nil {
		panic(err)
	}
	defer s.Logout()

	root, err := s.RootNode(ctx)
	if err != nil {
		panic(err)
	}
	_, err = root.AddNode(ctx, "tagged", jackalope.WithPrimaryType("mix:referenceable"))
	fmt.Println(errors.Is(err, jackalope.ErrConstraintViolation))
	fmt.Println(root.HasNodes())

	// Output:
	// true
	// false
}

func ExampleParseNamePattern() {
	f := jackalope.ParseNamePattern("jcr:*|my doc")
	fmt.Println(f.Filter([]string{"jcr:content", "jcr:system", "my doc", "other"}))

	// Output:
	// [jcr:content jcr:system my doc]
}
