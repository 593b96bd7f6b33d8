package router

import "github.com/gin-gonic/gin"

// APIModule / AdminModule 模块按所属引擎实现对应接口
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// SessionModule 额外有登录/注销链路的模块；
// 这些路由挂在不拦匿名的分组上（匿名进不来就没人能登录）
type SessionModule interface{ MountSession(*gin.RouterGroup) }

// MountAll 按传入顺序挂载，显式优于隐式注册。
// 业务路由上 secured 分组；实现了 SessionModule 的模块
// 其登录链路上 session 分组。
func MountAll(secured, session *gin.RouterGroup, mods ...APIModule) {
	for _, m := range mods {
		m.MountAPI(secured)
		if s, ok := m.(SessionModule); ok {
			s.MountSession(session)
		}
	}
}

func MountAllAdmin(admin *gin.RouterGroup, mods ...AdminModule) {
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}
