package ginbind

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"katydid-common-validation/pkg/validation"
)

// gin 请求边界适配器
// 把请求里的查询串、表单和 JSON 体收集为参数集，
// 并提供在路由上直接挂载的校验中间件

// Params 从请求提取参数集
// 采集顺序：查询参数 → 表单参数 → JSON 体（后者覆盖前者）
// JSON 体里的嵌套结构交给校验器构造期压平
func Params(c *gin.Context) map[string]any {
	params := make(map[string]any)

	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[len(values)-1]
		}
	}

	if err := c.Request.ParseForm(); err == nil {
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[len(values)-1]
			}
		}
	}

	if c.ContentType() == "application/json" {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err == nil {
			for key, value := range body {
				params[key] = value
			}
		}
	}

	return params
}

// New 用请求参数创建校验器实例
// opts.Params 会被请求参数整体取代
func New(c *gin.Context, opts validation.Options) (*validation.Validator, error) {
	opts.Params = Params(c)
	return validation.New(opts)
}

// Middleware 校验中间件
// 每个请求独立构造实例（实例是可变共享状态，不跨请求复用），
// 校验 targets 指定的字段；失败时以 422 返回字段错误并中止链
// 声明错误（字段/混入声明本身不合法）以 500 暴露，属于编程错误
func Middleware(opts validation.Options, targets ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := New(c, opts)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
			})
			return
		}

		args := make([]any, 0, len(targets))
		for _, target := range targets {
			args = append(args, target)
		}

		ok, err := v.Validate(args...)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
			})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"errors": v.ErrorFields(),
			})
			return
		}

		c.Next()
	}
}
