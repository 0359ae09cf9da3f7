package builder

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func javaPersonGolden() string {
	lines := []string{
		"package a.b;",
		"",
		"import javax.annotation.processing.Generated;",
		"import java.lang.reflect.Field;",
		"",
		`@Generated(value = "github.com/sghaida/buildergen", date = "2026-10-19T12:00:00Z")`,
		"public class PersonBuilder {",
		"\tprivate String firstName;",
		"\tprivate int age;",
		"",
		"\tpublic PersonBuilder withFirstName(String firstName) {",
		"\t\tthis.firstName = firstName;",
		"\t\treturn this;",
		"\t}",
		"",
		"\tpublic PersonBuilder withAge(int age) {",
		"\t\tthis.age = age;",
		"\t\treturn this;",
		"\t}",
		"",
		"\tpublic a.b.Person build() {",
		"\t\tfinal a.b.Person model = new a.b.Person();",
		"",
		"\t\ttry {",
		"\t\t\tfinal Field field = model.getClass().getDeclaredField(\"firstName\");",
		"\t\t\tfield.setAccessible(true);",
		"\t\t\tfield.set(model, this.firstName);",
		"\t\t} catch (ReflectiveOperationException | RuntimeException ignored) {",
		"\t\t\t// stale or inaccessible field keeps its default value",
		"\t\t}",
		"",
		"\t\ttry {",
		"\t\t\tfinal Field field = model.getClass().getDeclaredField(\"age\");",
		"\t\t\tfield.setAccessible(true);",
		"\t\t\tfield.set(model, this.age);",
		"\t\t} catch (ReflectiveOperationException | RuntimeException ignored) {",
		"\t\t\t// stale or inaccessible field keeps its default value",
		"\t\t}",
		"",
		"\t\treturn model;",
		"\t}",
		"}",
		"",
	}
	return strings.Join(lines, "\n")
}

func TestJavaTarget_RenderPerson(t *testing.T) {
	t.Parallel()

	g := New(NewMemorySink(), WithClock(fixedClock))
	unit, err := g.Render(personDescriptor())
	require.NoError(t, err)

	assert.Equal(t, "a.b.PersonBuilder", unit.OutputQualifiedName)
	assert.Equal(t, "a/b/PersonBuilder.java", unit.Path)
	assert.Equal(t, javaPersonGolden(), unit.SourceText)
}

// TestJavaTarget_MembersFollowFieldOrder checks one property, one setter and
// one assignment block per field, all in declaration order.
func TestJavaTarget_MembersFollowFieldOrder(t *testing.T) {
	t.Parallel()

	d := ClassDescriptor{
		QualifiedName: "com.acme.Order",
		Fields: []FieldSpec{
			{Name: "id", Type: "long"},
			{Name: "items", Type: "java.util.List<java.lang.String>"},
			{Name: "total", Type: "java.math.BigDecimal"},
		},
	}
	unit, err := New(NewMemorySink(), WithClock(fixedClock)).Render(d)
	require.NoError(t, err)
	src := unit.SourceText

	assert.Len(t, regexp.MustCompile(`(?m)^\tprivate `).FindAllString(src, -1), 3)
	assert.Len(t, regexp.MustCompile(`(?m)^\tpublic OrderBuilder with`).FindAllString(src, -1), 3)
	assert.Equal(t, 3, strings.Count(src, "getDeclaredField("))
	assert.Equal(t, 3, strings.Count(src, "} catch (ReflectiveOperationException | RuntimeException ignored) {"))

	assertContainsInOrder(t, src,
		"private long id;",
		"private java.util.List<java.lang.String> items;",
		"private java.math.BigDecimal total;",
		"public OrderBuilder withId(long id)",
		"public OrderBuilder withItems(java.util.List<java.lang.String> items)",
		"public OrderBuilder withTotal(java.math.BigDecimal total)",
		"public com.acme.Order build()",
		`getDeclaredField("id")`,
		`getDeclaredField("items")`,
		`getDeclaredField("total")`,
		"return model;",
	)
}

func TestJavaTarget_NoFields(t *testing.T) {
	t.Parallel()

	unit, err := New(NewMemorySink(), WithClock(fixedClock)).Render(ClassDescriptor{QualifiedName: "a.b.Empty"})
	require.NoError(t, err)

	assert.NotContains(t, unit.SourceText, "private ")
	assert.NotContains(t, unit.SourceText, "try {")
	assertContainsInOrder(t, unit.SourceText,
		"public class EmptyBuilder {",
		"public a.b.Empty build() {",
		"final a.b.Empty model = new a.b.Empty();",
		"return model;",
	)
}

func TestJavaTarget_Unpackaged(t *testing.T) {
	t.Parallel()

	d := ClassDescriptor{QualifiedName: "Person", Fields: []FieldSpec{{Name: "x", Type: "int"}}}
	unit, err := New(NewMemorySink(), WithClock(fixedClock)).Render(d)
	require.NoError(t, err)

	assert.Equal(t, "PersonBuilder", unit.OutputQualifiedName)
	assert.Equal(t, "PersonBuilder.java", unit.Path)
	assert.NotContains(t, unit.SourceText, "package ")
	assert.True(t, strings.HasPrefix(unit.SourceText, "import javax.annotation.processing.Generated;\n"))
	assert.Contains(t, unit.SourceText, "public PersonBuilder withX(int x) {")
}

// TestJavaTarget_Deterministic renders the same descriptor twice with a
// fixed clock and expects identical text.
func TestJavaTarget_Deterministic(t *testing.T) {
	t.Parallel()

	g := New(NewMemorySink(), WithClock(fixedClock))
	first, err := g.Render(personDescriptor())
	require.NoError(t, err)
	second, err := g.Render(personDescriptor())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestJavaTarget_GeneratorName(t *testing.T) {
	t.Parallel()

	g := New(NewMemorySink(), WithClock(fixedClock), WithGeneratorName("acme.BuilderProcessor"))
	unit, err := g.Render(personDescriptor())
	require.NoError(t, err)
	assert.Contains(t, unit.SourceText, `@Generated(value = "acme.BuilderProcessor", date = "2026-10-19T12:00:00Z")`)
}
