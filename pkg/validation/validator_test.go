package validation

import (
	"errors"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, opts Options) *Validator {
	t.Helper()
	v, err := New(opts)
	if err != nil {
		t.Fatalf("构造失败: %v", err)
	}
	return v
}

func mustValidate(t *testing.T, v *Validator, targets ...any) bool {
	t.Helper()
	ok, err := v.Validate(targets...)
	if err != nil {
		t.Fatalf("Validate 不应返回错误: %v", err)
	}
	return ok
}

func TestValidate_Matches(t *testing.T) {
	opts := Options{
		Fields: map[string]Directives{
			"password":  {"matches": "password2"},
			"password2": {},
		},
		Params: map[string]any{"password": "secret", "password2": "secret"},
	}

	v := mustNew(t, opts)
	if !mustValidate(t, v) {
		t.Fatalf("一致的值应当通过: %v", v.Errors())
	}

	v.SetParam("password2", "s3cret")
	if mustValidate(t, v) {
		t.Fatal("不一致的值应当失败")
	}
	want := "password does not match password2"
	if got := v.Errors(); len(got) != 1 || got[0] != want {
		t.Errorf("错误消息不符: got %v, want [%s]", got, want)
	}
}

func TestValidate_Pattern(t *testing.T) {
	opts := Options{
		Fields: map[string]Directives{
			"telephone": {"pattern": "### ###-####"},
		},
	}

	v := mustNew(t, opts)
	v.SetParam("telephone", "123 456-7890")
	if !mustValidate(t, v, "telephone") {
		t.Fatalf("匹配模板应当通过: %v", v.Errors())
	}

	v.SetParam("telephone", "1234567890")
	if mustValidate(t, v, "telephone") {
		t.Fatal("不匹配模板应当失败")
	}
	want := "telephone does not match the pattern ### ###-####"
	if got := v.ErrorsToString(", "); got != want {
		t.Errorf("错误消息不符: got %q, want %q", got, want)
	}
}

func TestValidate_Alias(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"pager": {"alias": []any{"page_user_list"}},
		},
		Params: map[string]any{"page_user_list": 3},
	})

	if !mustValidate(t, v, "pager") {
		t.Fatalf("别名解析后应当通过: %v", v.Errors())
	}
	if got := v.Param("pager"); got != 3 {
		t.Errorf("规范字段应当拿到别名参数值: got %v", got)
	}
}

func TestValidate_AliasImplicitTarget(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"pager": {"alias": "page_user_list", "min_length": 3},
			"other": {},
		},
		Params: map[string]any{"page_user_list": "1"},
	})

	// 只显式校验 other，但别名命中会把 pager 标记为隐式目标
	if mustValidate(t, v, "other") {
		t.Fatal("隐式目标的 min_length 应当失败")
	}
	if got := v.FieldErrors("pager"); len(got) != 1 {
		t.Errorf("pager 应当有一条错误: %v", got)
	}
}

func TestValidate_Queue(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"name":  {"required": 1},
			"login": {"required": 1},
			"other": {"required": 1},
		},
		Params: map[string]any{"name": "a", "login": "", "other": ""},
	})

	v.Queue("name", "login")
	if mustValidate(t, v) {
		t.Fatal("login 为空应当失败")
	}
	if got := v.FieldErrors("login"); len(got) != 1 {
		t.Errorf("login 应当有错误: %v", got)
	}
	// other 不在队列里，不应被处理
	if got := v.FieldErrors("other"); len(got) != 0 {
		t.Errorf("other 不应被校验: %v", got)
	}

	// 队列之外再加直接目标
	if mustValidate(t, v.Reset().Queue("name"), "other") {
		t.Fatal("other 为空应当失败")
	}
	if got := v.FieldErrors("other"); len(got) != 1 {
		t.Errorf("直接目标应当被校验: %v", got)
	}
}

func TestValidate_ToggleRequired(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"name": {"required": 0},
		},
	})

	// +name 单次强制必填
	if mustValidate(t, v, "+name") {
		t.Fatal("强制必填且无值应当失败")
	}
	want := "name is required"
	if got := v.Errors(); len(got) != 1 || got[0] != want {
		t.Errorf("错误消息不符: got %v", got)
	}

	// toggle 不跨调用保留
	if !mustValidate(t, v) {
		t.Fatalf("后续空参调用不应保留 toggle: %v", v.Errors())
	}
}

func TestValidate_ToggleOptional(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"name": {"required": 1},
		},
	})

	if !mustValidate(t, v, "-name") {
		t.Fatalf("-name 单次强制可选应当通过: %v", v.Errors())
	}
	if mustValidate(t, v, "name") {
		t.Fatal("恢复静态 required 后应当失败")
	}
}

func TestValidate_RequiredShortCircuit(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"code": {"required": 1, "min_length": 5},
		},
		Params: map[string]any{"code": ""},
	})

	if mustValidate(t, v) {
		t.Fatal("空值必填应当失败")
	}
	// required 失败后短路，不再执行 min_length
	if got := v.FieldErrors("code"); len(got) != 1 || got[0] != "code is required" {
		t.Errorf("应当只有 required 错误: %v", got)
	}
}

func TestValidate_ErrorOverride(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"code": {"required": 1, "error": "bad code"},
		},
		Params: map[string]any{"code": ""},
	})

	if mustValidate(t, v) {
		t.Fatal("应当失败")
	}
	if got := v.Errors(); len(got) != 1 || got[0] != "bad code" {
		t.Errorf("error 覆盖未生效: %v", got)
	}
}

func TestValidate_LabelInMessage(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"tel": {"required": 1, "label": "Telephone Number"},
		},
	})

	mustValidate(t, v, "tel")
	if got := v.ErrorsToString(); got != "Telephone Number is required" {
		t.Errorf("label 应当用于消息: %q", got)
	}
}

func TestValidate_DirectiveCheckers(t *testing.T) {
	tests := []struct {
		name       string
		directives Directives
		value      any
		wantOK     bool
		wantMsg    string
	}{
		{"between 通过", Directives{"between": "1-5"}, "abc", true, ""},
		{"between 超限", Directives{"between": "1-5"}, "abcdefg", false,
			"f must contain between 1-5 characters"},
		{"length 通过", Directives{"length": 4}, "abcd", true, ""},
		{"length 不符", Directives{"length": 4}, "abc", false,
			"f must contain exactly 4 characters"},
		{"max_length 超限", Directives{"max_length": 3}, "abcd", false,
			"f cannot contain more than 3 characters"},
		{"min_length 不足", Directives{"min_length": 3}, "ab", false,
			"f must contain at least 3 characters"},
		{"options 命中", Directives{"options": "small, large"}, "small", true, ""},
		{"options 未命中", Directives{"options": "small, large"}, "medium", false,
			"f must be one of small, large"},
		{"空值跳过校验", Directives{"min_length": 3}, "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustNew(t, Options{
				Fields: map[string]Directives{"f": tt.directives},
				Params: map[string]any{"f": tt.value},
			})
			ok := mustValidate(t, v)
			if ok != tt.wantOK {
				t.Fatalf("结果不符: got %v, errors %v", ok, v.Errors())
			}
			if !tt.wantOK {
				if got := v.Errors(); len(got) != 1 || got[0] != tt.wantMsg {
					t.Errorf("错误消息不符: got %v, want [%s]", got, tt.wantMsg)
				}
			}
		})
	}
}

func TestValidate_FiltersApplied(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"login": {"filters": []any{"trim", "lowercase"}, "min_length": 3},
		},
		Params: map[string]any{"login": "  ADMIN  "},
	})

	if !mustValidate(t, v) {
		t.Fatalf("过滤后应当通过: %v", v.Errors())
	}
	// 过滤结果是约定内的可见副作用
	if got := v.Param("login"); got != "admin" {
		t.Errorf("过滤结果应当写回参数: %v", got)
	}
}

func TestValidate_DefaultDirective(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"color": {"default": "red"},
		},
		Params: map[string]any{"color": ""},
	})

	if !mustValidate(t, v) {
		t.Fatalf("应当通过: %v", v.Errors())
	}
	if got := v.Field("color").CurrentValue; got != "red" {
		t.Errorf("空串参数应当取 default 值: %v", got)
	}
}

func TestValidate_ValueDirective(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"lang": {"value": "go", "required": 1},
		},
	})

	if !mustValidate(t, v, "lang") {
		t.Fatalf("value 指令应当补上缺失参数: %v", v.Errors())
	}
	if got := v.Field("lang").CurrentValue; got != "go" {
		t.Errorf("CurrentValue 应当为静态值: %v", got)
	}
}

func TestValidate_CustomValidation(t *testing.T) {
	t.Run("返回false补默认消息", func(t *testing.T) {
		v := mustNew(t, Options{
			Fields: map[string]Directives{
				"age": {"validation": CustomValidator(func(v *Validator, f *FieldSpec, params map[string]any) bool {
					return false
				})},
			},
			Params: map[string]any{"age": "17"},
		})
		if mustValidate(t, v) {
			t.Fatal("应当失败")
		}
		want := "age did not pass validation"
		if got := v.Errors(); len(got) != 1 || got[0] != want {
			t.Errorf("默认消息不符: %v", got)
		}
	})

	t.Run("回调自行记录错误时不补发", func(t *testing.T) {
		v := mustNew(t, Options{
			Fields: map[string]Directives{
				"age": {"validation": CustomValidator(func(v *Validator, f *FieldSpec, params map[string]any) bool {
					_ = v.AddError(f, "age must be at least 18")
					return false
				})},
			},
			Params: map[string]any{"age": "17"},
		})
		mustValidate(t, v)
		if got := v.Errors(); len(got) != 1 || got[0] != "age must be at least 18" {
			t.Errorf("应当只有回调记录的消息: %v", got)
		}
	})

	t.Run("无参数数据时不执行回调", func(t *testing.T) {
		called := false
		v := mustNew(t, Options{
			Fields: map[string]Directives{
				"age": {"validation": CustomValidator(func(v *Validator, f *FieldSpec, params map[string]any) bool {
					called = true
					return false
				})},
			},
		})
		if !mustValidate(t, v) {
			t.Fatalf("应当通过: %v", v.Errors())
		}
		if called {
			t.Error("参数集为空时不应执行自定义回调")
		}
	})
}

func TestValidate_UnknownFieldPolicies(t *testing.T) {
	t.Run("默认致命", func(t *testing.T) {
		v := mustNew(t, Options{
			Fields: map[string]Directives{"known": {}},
		})
		ok, err := v.Validate("nope")
		if ok || !errors.Is(err, ErrUnknownField) {
			t.Errorf("期望 ErrUnknownField, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("ignoreUnknown 静默跳过", func(t *testing.T) {
		v := mustNew(t, Options{
			Fields:        map[string]Directives{"known": {}},
			IgnoreUnknown: true,
		})
		if !mustValidate(t, v, "nope") {
			t.Errorf("容忍模式应当通过: %v", v.Errors())
		}
	})

	t.Run("reportUnknown 记录类级错误", func(t *testing.T) {
		v := mustNew(t, Options{
			Fields:        map[string]Directives{"known": {}},
			IgnoreUnknown: true,
			ReportUnknown: true,
		})
		if mustValidate(t, v, "nope") {
			t.Fatal("上报模式应当失败")
		}
		if got := v.Errors(); len(got) != 1 || got[0] != "found unknown field 'nope'" {
			t.Errorf("类级错误不符: %v", got)
		}
	})
}

func TestValidate_RenameMapping(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"login": {"min_length": 3},
		},
		Params: map[string]any{"user_name": "ab"},
	})

	if mustValidate(t, v, map[string]string{"user_name": "login"}) {
		t.Fatal("改名后的目标应当失败")
	}
	if got := v.FieldErrors("login"); len(got) != 1 {
		t.Errorf("login 应当有错误: %v", got)
	}
	// 快照恢复：原始入参键仍然在
	if got := v.Param("user_name"); got != "ab" {
		t.Errorf("原始参数键应当恢复: %v", got)
	}
}

func TestValidate_ParamsRestoredAfterRun(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"pager": {"alias": "page_user_list"},
		},
		Params: map[string]any{"page_user_list": 3},
	})

	mustValidate(t, v, "pager")
	// 别名搬移只在运行期间生效，原始键恢复
	if got := v.Param("page_user_list"); got != 3 {
		t.Errorf("别名键应当恢复: %v", got)
	}
}

func TestValidate_NoParamsValidatesAllFields(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"a": {"required": 1},
			"b": {},
		},
	})

	if mustValidate(t, v) {
		t.Fatal("必填字段缺失应当失败")
	}
	if got := v.FieldErrors("a"); len(got) != 1 {
		t.Errorf("a 应当有 required 错误: %v", got)
	}
	if got := v.FieldErrors("b"); len(got) != 0 {
		t.Errorf("b 不应有错误: %v", got)
	}
}

func TestValidate_ParamsDeriveTargets(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"a": {"min_length": 3},
			"b": {"min_length": 3},
		},
		Params: map[string]any{"a": "x"},
	})

	if mustValidate(t, v) {
		t.Fatal("a 应当失败")
	}
	// b 没有参数，不是目标
	if got := v.FieldErrors("b"); len(got) != 0 {
		t.Errorf("b 不应被校验: %v", got)
	}
}

func TestValidate_ErrorsResetBetweenRuns(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"a": {"required": 1},
		},
	})

	mustValidate(t, v, "a")
	if v.ErrorCount() != 1 {
		t.Fatalf("第一次运行应当有错误: %v", v.Errors())
	}

	v.SetParam("a", "ok")
	if !mustValidate(t, v, "a") {
		t.Fatalf("第二次运行应当通过: %v", v.Errors())
	}
	if v.ErrorCount() != 0 {
		t.Errorf("错误应当在运行前清空: %v", v.Errors())
	}
}

func TestErrorsToString(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"a": {"required": 1},
			"b": {"required": 1},
		},
	})

	mustValidate(t, v)
	// 不传分隔符时默认 ", "
	want := "a is required, b is required"
	if got := v.ErrorsToString(); got != want {
		t.Errorf("默认分隔符不符: got %q, want %q", got, want)
	}
	if got := v.ErrorsToString(" | "); got != "a is required | b is required" {
		t.Errorf("自定义分隔符不符: %q", got)
	}
	// 显式空串是合法分隔符，不回退默认值
	if got := v.ErrorsToString(""); got != "a is requiredb is required" {
		t.Errorf("空分隔符不符: %q", got)
	}
}

func TestErrorFields(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"a": {"required": 1},
			"b": {},
		},
	})

	mustValidate(t, v)
	want := map[string][]string{"a": {"a is required"}}
	if got := v.ErrorFields(); !reflect.DeepEqual(got, want) {
		t.Errorf("ErrorFields 不符: %v", got)
	}
}

func TestAddError_BadTarget(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{"a": {}},
	})

	if err := v.AddError(nil, "x"); !errors.Is(err, ErrBadErrorTarget) {
		t.Errorf("nil 字段应当报错: %v", err)
	}
	if err := v.AddError(&FieldSpec{Name: "a"}, "x"); !errors.Is(err, ErrBadErrorTarget) {
		t.Errorf("外来字段对象应当报错: %v", err)
	}
	if err := v.AddError(v.Field("a"), "x"); err != nil {
		t.Errorf("本实例字段不应报错: %v", err)
	}
}

func TestNestedParamsFlattenedAtConstruction(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{
			"user.login": {"required": 1, "min_length": 3},
		},
		Params: map[string]any{
			"user": map[string]any{"login": "ab"},
		},
	})

	if mustValidate(t, v) {
		t.Fatal("嵌套参数压平后应当参与校验")
	}
	if got := v.Param("user.login"); got != "ab" {
		t.Errorf("点分键应当存在: %v", got)
	}

	nested, err := v.GetParamsHash()
	if err != nil {
		t.Fatalf("GetParamsHash 失败: %v", err)
	}
	want := map[string]any{"user": map[string]any{"login": "ab"}}
	if !reflect.DeepEqual(nested, want) {
		t.Errorf("还原结果不符: %#v", nested)
	}
}

func TestSetParamsHash(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{"user.login": {}},
	})

	flat := v.SetParamsHash(map[string]any{
		"user": map[string]any{"login": "admin"},
	})
	if got := flat["user.login"]; got != "admin" {
		t.Errorf("压平结果不符: %v", got)
	}
	if got := v.Param("user.login"); got != "admin" {
		t.Errorf("参数集应当被整体替换: %v", got)
	}
}

func TestChild_Independence(t *testing.T) {
	parent := mustNew(t, Options{
		Fields: map[string]Directives{
			"login": {"required": 1},
			"email": {},
		},
		Params: map[string]any{"login": "a", "email": "x"},
	})

	child, err := parent.Child("login")
	if err != nil {
		t.Fatalf("Child 失败: %v", err)
	}

	if _, err := child.Validate("email"); !errors.Is(err, ErrUnknownField) {
		t.Error("子实例只持有指定字段")
	}

	// 互不影响：子实例参数修改不波及父实例
	child.SetParam("login", "")
	if got := parent.Param("login"); got != "a" {
		t.Errorf("父实例参数不应变化: %v", got)
	}

	ok, err := child.Validate("login")
	if err != nil {
		t.Fatalf("子实例校验错误: %v", err)
	}
	if ok {
		t.Error("子实例空值必填应当失败")
	}
	if parent.ErrorCount() != 0 {
		t.Error("父实例错误收集器不应受影响")
	}

	if _, err := parent.Child("missing"); !errors.Is(err, ErrUnknownField) {
		t.Error("未知字段应当报错")
	}
}

func TestGetParams(t *testing.T) {
	v := mustNew(t, Options{
		Fields: map[string]Directives{"a": {}, "b": {}},
		Params: map[string]any{"a": 1},
	})

	got := v.GetParams("a", "b")
	if len(got) != 2 || got[0] != 1 || got[1] != nil {
		t.Errorf("GetParams 不符: %v", got)
	}
}
