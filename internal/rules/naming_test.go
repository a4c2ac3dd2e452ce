package rules_test

import (
	"testing"

	"archguard/internal/graph"
	"archguard/internal/predicate"
	"archguard/internal/rules"
	"archguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceMarker = "org.springframework.stereotype.Service"

func serviceNamingRule(t *testing.T) rules.Rule {
	return rules.Rule{
		ID: "all_classes_in_service_package_are_annotated_and_correctly_named",
		Selector: predicate.And(
			mustReside(t, "org.example.service.."),
			predicate.IsType(),
			predicate.Not(predicate.IsNested()),
			predicate.Not(predicate.IsInterface()),
		),
		Condition: &rules.Naming{Annotation: "Service", NameContains: "Service"},
	}
}

func TestNaming_DistinctMessagePerRequirement(t *testing.T) {
	tests := []struct {
		name        string
		class       string
		annotations []string
		want        []string
	}{
		{"annotated and named", "org.example.service.OrderService", []string{serviceMarker}, nil},
		{"missing annotation", "org.example.service.OrderService", nil,
			[]string{"org.example.service.OrderService is not annotated with @Service"}},
		{"missing name", "org.example.service.OrderManager", []string{serviceMarker},
			[]string{`org.example.service.OrderManager simple name does not contain "Service"`}},
		{"missing both", "org.example.service.Orders", nil, []string{
			"org.example.service.Orders is not annotated with @Service",
			`org.example.service.Orders simple name does not contain "Service"`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testutil.NewGraph(t).
				Class(tt.class, tt.annotations...).
				Class(tt.class+"$Nested").
				Interface("org.example.service.Ordering").
				Build()

			vs, err := serviceNamingRule(t).Evaluate(g, nil)
			require.NoError(t, err)

			var msgs []string
			for _, v := range vs {
				msgs = append(msgs, v.Message)
			}
			assert.Equal(t, tt.want, msgs)
		})
	}
}

func TestNaming_Suffix(t *testing.T) {
	g := testutil.NewGraph(t).
		Class("org.example.service.ServiceHelper", serviceMarker).
		Build()

	rule := rules.Rule{
		ID:        "service_suffix",
		Selector:  predicate.IsType(),
		Condition: &rules.Naming{NameSuffix: "Service"},
	}
	vs, err := rule.Evaluate(g, nil)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, `org.example.service.ServiceHelper simple name does not end with "Service"`, vs[0].Message)
}

func TestConformance(t *testing.T) {
	f := testutil.NewGraph(t).
		Type(graph.KindEnum, "org.example.enums.Status").
		Class("org.example.enums.StatusHolder").
		Interface("org.example.controller.SomeBadControllerInterface")
	f.AnnotatedMethod("org.example.controller.SomeBadControllerInterface", "invokeWithBadAnnotation",
		[]string{"org.example.Secure", "org.springframework.transaction.annotation.Transactional"})
	g := f.Build()

	t.Run("enums package contains only enums", func(t *testing.T) {
		rule := rules.Rule{
			ID:        "enum_only",
			Selector:  predicate.And(mustReside(t, "org.example.enums.."), predicate.IsType()),
			Condition: &rules.Conformance{Requirement: predicate.IsEnum()},
		}
		vs, err := rule.Evaluate(g, nil)
		require.NoError(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "org.example.enums.StatusHolder does not satisfy: kind enum", vs[0].Message)
	})

	t.Run("interface methods are not secured", func(t *testing.T) {
		rule := rules.Rule{
			ID: "secure_should_not_be_in_interfaces",
			Selector: predicate.And(
				predicate.OfKind(graph.KindMethod),
				predicate.DeclaredIn(predicate.IsInterface()),
			),
			Condition: &rules.Conformance{Requirement: predicate.Not(predicate.AnnotatedWith("Secure"))},
		}
		vs, err := rule.Evaluate(g, nil)
		require.NoError(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "org.example.controller.SomeBadControllerInterface.invokeWithBadAnnotation()", vs[0].Subject)
	})
}
