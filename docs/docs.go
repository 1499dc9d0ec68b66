// Package docs 由控制器上的 swag 注释生成，修改注释后执行 swag init 重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/activities": {
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.LearningActivity"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "记录学习行为",
                "tags": [
                    "学习行为"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "学习行为",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.RecordActivityRequest"
                        }
                    }
                ]
            },
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "最近的学习行为",
                "tags": [
                    "学习行为"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "数量，默认 20",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/admin/mastery/recompute": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/service.RecomputeResult"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "重算掌握度 (管理员)",
                "description": "指定 studentId 时只重算该学生；已有重算在进行时返回 409",
                "tags": [
                    "掌握度"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "学生ID",
                        "name": "studentId",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/admin/submissions/{id}/recompute": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.StudentAssignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "重算提交总分 (管理员)",
                "tags": [
                    "评分"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "提交ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments": {
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Assignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "创建作业 (授课教师/管理员)",
                "description": "可同时创建题目，创建后自动分配给课程中的在读学生",
                "tags": [
                    "作业"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "作业信息",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.CreateAssignmentRequest"
                        }
                    }
                ]
            }
        },
        "/api/assignments/{id}": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Assignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "作业详情（含题目）",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/assign": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "分配作业给在读学生",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/export": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "object"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "导出成绩单 CSV",
                "description": "生成 CSV 并上传到配置的存储，返回下载地址",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/gradebook.csv": {
            "get": {
                "responses": {
                    "200": {
                        "description": "CSV",
                        "schema": {
                            "type": "string"
                        }
                    }
                },
                "summary": "下载成绩单 CSV",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "text/csv"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/knowledge-points": {
            "put": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/model.AssignmentKnowledgePoint"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "设置作业关联的知识点 (授课教师/管理员)",
                "description": "整体替换；权重缺省为 1",
                "tags": [
                    "知识点"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "关联",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/service.KnowledgePointLink"
                            }
                        }
                    }
                ]
            },
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/model.AssignmentKnowledgePoint"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "作业关联的知识点",
                "tags": [
                    "知识点"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/questions": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/model.Question"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "作业题目列表",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Question"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "添加题目 (授课教师/管理员)",
                "description": "题目序号为当前最大序号加一",
                "tags": [
                    "作业"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "题目",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.QuestionInput"
                        }
                    }
                ]
            }
        },
        "/api/assignments/{id}/responses": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "object"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "查看作答",
                "description": "返回 questionId -> 作答；尚无提交时返回空对象",
                "tags": [
                    "提交"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "学生ID（教师使用）",
                        "name": "studentId",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/assignments/{id}/students/{studentId}/grade": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.StudentAssignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "整体评分 (授课教师/管理员)",
                "description": "直接写入作业总分并标记完成；已有逐题评分时返回 409",
                "tags": [
                    "评分"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "学生ID",
                        "name": "studentId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "分数与评语",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controller.GradeRequest"
                        }
                    }
                ]
            }
        },
        "/api/assignments/{id}/submission": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.StudentAssignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "查看提交记录",
                "tags": [
                    "提交"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "学生ID（教师使用）",
                        "name": "studentId",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/assignments/{id}/submissions": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "作业提交列表 (授课教师/管理员)",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/assignments/{id}/submit": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.StudentAssignment"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "提交整份作业",
                "description": "可附带整体作答文本及多道题的答案，计为一次尝试",
                "tags": [
                    "提交"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "作业ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "作答",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controller.SubmitAssignmentRequest"
                        }
                    }
                ]
            }
        },
        "/api/courses": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "课程列表",
                "description": "管理员返回全部课程，教师返回所授课程，学生返回在读课程",
                "tags": [
                    "课程"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ]
            },
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Course"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "409": {
                        "description": "课程代码已存在",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "创建课程 (教师/管理员)",
                "tags": [
                    "课程"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "课程信息",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.CreateCourseRequest"
                        }
                    }
                ]
            }
        },
        "/api/courses/{id}": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Course"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "课程详情",
                "tags": [
                    "课程"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/courses/{id}/assignments": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "课程作业列表",
                "tags": [
                    "作业"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/courses/{id}/enroll": {
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.Enrollment"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "409": {
                        "description": "已选课",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "选课",
                "description": "学生为自己选课；授课教师可通过 studentId 为学生选课。已退课的记录会被重新激活",
                "tags": [
                    "课程"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "学生ID",
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/controller.EnrollRequest"
                        }
                    }
                ]
            }
        },
        "/api/courses/{id}/knowledge-points": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/model.KnowledgePoint"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "课程知识点",
                "description": "tree=true 时返回树形结构",
                "tags": [
                    "知识点"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "boolean",
                        "description": "树形",
                        "name": "tree",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/courses/{id}/students": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "课程学生名单 (授课教师/管理员)",
                "tags": [
                    "课程"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/courses/{id}/unenroll": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "退课",
                "tags": [
                    "课程"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "学生ID",
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/controller.EnrollRequest"
                        }
                    }
                ]
            }
        },
        "/api/health": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    },
                    "503": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "健康检查",
                "description": "检查数据库和 Redis 状态",
                "tags": [
                    "系统"
                ],
                "produces": [
                    "application/json"
                ]
            }
        },
        "/api/knowledge": {
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.KnowledgeEntry"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "添加知识库条目 (教师/管理员)",
                "tags": [
                    "知识库"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "条目",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.KnowledgeEntryInput"
                        }
                    }
                ]
            }
        },
        "/api/knowledge-points": {
            "post": {
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.KnowledgePoint"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "创建知识点 (授课教师/管理员)",
                "tags": [
                    "知识点"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "description": "知识点信息",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.KnowledgePointRequest"
                        }
                    }
                ]
            }
        },
        "/api/knowledge-points/{id}": {
            "put": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.KnowledgePoint"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "更新知识点 (授课教师/管理员)",
                "description": "修改父节点时拒绝形成环",
                "tags": [
                    "知识点"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "知识点ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "更新内容",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.KnowledgePointUpdate"
                        }
                    }
                ]
            },
            "delete": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "删除知识点 (授课教师/管理员)",
                "description": "仍有子节点时返回 409",
                "tags": [
                    "知识点"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "知识点ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/knowledge/search": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "搜索知识库",
                "description": "按标题、内容和标签做关键词匹配",
                "tags": [
                    "知识库"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "关键词",
                        "name": "q",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "courseId",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "string",
                        "description": "分类",
                        "name": "category",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "数量，默认 20，最多 100",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/login": {
            "post": {
                "responses": {
                    "200": {
                        "description": "登录成功",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "object"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "邮箱或密码错误",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "用户登录",
                "description": "使用邮箱和密码登录，返回 JWT",
                "tags": [
                    "认证"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "登录凭证",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controller.LoginRequest"
                        }
                    }
                ]
            }
        },
        "/api/mastery": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/model.StudentKnowledgePoint"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "知识点掌握度",
                "description": "学生查看自己；教师和管理员可通过 studentId 查看指定学生",
                "tags": [
                    "掌握度"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "学生ID",
                        "name": "studentId",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/my/assignments": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/util.ListResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "我的作业",
                "tags": [
                    "提交"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "课程ID",
                        "name": "courseId",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "boolean",
                        "description": "是否已完成",
                        "name": "completed",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        },
        "/api/profile": {
            "get": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.User"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "当前用户信息",
                "tags": [
                    "认证"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ]
            }
        },
        "/api/questions/{id}/response": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/model.StudentResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "403": {
                        "description": "未选修该课程",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "提交单题作答",
                "description": "重复提交覆盖之前的答案，不影响已有评分",
                "tags": [
                    "提交"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "题目ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "作答",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controller.ResponseRequest"
                        }
                    }
                ]
            }
        },
        "/api/questions/{id}/students/{studentId}/grade": {
            "post": {
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "object"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "分数超出范围",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    },
                    "409": {
                        "description": "评分方式冲突",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "逐题评分 (授课教师/管理员)",
                "description": "分数须在 0 到题目分值之间，评分后重算作业总分；作业已整体评分时返回 409",
                "tags": [
                    "评分"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "题目ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "学生ID",
                        "name": "studentId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "分数与评语",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/controller.GradeRequest"
                        }
                    }
                ]
            }
        },
        "/api/register": {
            "post": {
                "responses": {
                    "201": {
                        "description": "创建成功",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/util.Response"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "object"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    },
                    "409": {
                        "description": "邮箱已被注册",
                        "schema": {
                            "$ref": "#/definitions/util.Response"
                        }
                    }
                },
                "summary": "注册新用户",
                "description": "使用提供的信息注册学生或教师账号",
                "tags": [
                    "认证"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "用户注册信息",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/service.RegisterRequest"
                        }
                    }
                ]
            }
        },
        "/api/ws": {
            "get": {
                "responses": {},
                "summary": "成绩通知 WebSocket",
                "description": "浏览器无法设置请求头时可通过 token 查询参数传递 JWT；服务端推送 grade.updated 事件",
                "tags": [
                    "通知"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "JWT",
                        "name": "token",
                        "in": "query",
                        "required": false
                    }
                ]
            }
        }
    },
    "definitions": {
        "controller.AnswerItem": {
            "type": "object",
            "properties": {
                "questionId": {
                    "type": "integer"
                },
                "answerText": {
                    "type": "string"
                },
                "selectedOptionId": {
                    "type": "integer"
                }
            }
        },
        "controller.EnrollRequest": {
            "type": "object",
            "properties": {
                "studentId": {
                    "type": "integer"
                }
            }
        },
        "controller.GradeRequest": {
            "type": "object",
            "properties": {
                "score": {
                    "type": "number"
                },
                "feedback": {
                    "type": "string"
                }
            }
        },
        "controller.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "controller.ResponseRequest": {
            "type": "object",
            "properties": {
                "answerText": {
                    "type": "string"
                },
                "selectedOptionId": {
                    "type": "integer"
                }
            }
        },
        "controller.SubmitAssignmentRequest": {
            "type": "object",
            "properties": {
                "answer": {
                    "type": "string"
                },
                "answers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/controller.AnswerItem"
                    }
                }
            }
        },
        "model.Assignment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "courseId": {
                    "type": "integer"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "dueDate": {
                    "type": "string",
                    "format": "date-time"
                },
                "totalPoints": {
                    "type": "number"
                },
                "questions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/model.Question"
                    }
                }
            }
        },
        "model.AssignmentKnowledgePoint": {
            "type": "object",
            "properties": {
                "assignmentId": {
                    "type": "integer"
                },
                "knowledgePointId": {
                    "type": "integer"
                },
                "weight": {
                    "type": "number"
                }
            }
        },
        "model.Course": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "code": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "teacherId": {
                    "type": "integer"
                },
                "teacher": {
                    "$ref": "#/definitions/model.User"
                }
            }
        },
        "model.Enrollment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "studentId": {
                    "type": "integer"
                },
                "courseId": {
                    "type": "integer"
                },
                "isActive": {
                    "type": "boolean"
                },
                "enrolledAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "course": {
                    "$ref": "#/definitions/model.Course"
                }
            }
        },
        "model.KnowledgeEntry": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "title": {
                    "type": "string"
                },
                "content": {
                    "type": "string"
                },
                "category": {
                    "type": "string"
                },
                "tags": {
                    "type": "string"
                },
                "source": {
                    "type": "string"
                },
                "courseId": {
                    "type": "integer"
                }
            }
        },
        "model.KnowledgePoint": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "courseId": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "parentId": {
                    "type": "integer"
                },
                "children": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/model.KnowledgePoint"
                    }
                }
            }
        },
        "model.LearningActivity": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "studentId": {
                    "type": "integer"
                },
                "courseId": {
                    "type": "integer"
                },
                "knowledgePointId": {
                    "type": "integer"
                },
                "activityType": {
                    "type": "string"
                },
                "durationSeconds": {
                    "type": "integer"
                },
                "metadata": {
                    "type": "object"
                },
                "timestamp": {
                    "type": "string",
                    "format": "date-time"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "model.Question": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "assignmentId": {
                    "type": "integer"
                },
                "text": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "points": {
                    "type": "number"
                },
                "order": {
                    "type": "integer"
                },
                "options": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/model.QuestionOption"
                    }
                }
            }
        },
        "model.QuestionOption": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "questionId": {
                    "type": "integer"
                },
                "text": {
                    "type": "string"
                },
                "order": {
                    "type": "integer"
                }
            }
        },
        "model.StudentAssignment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "studentId": {
                    "type": "integer"
                },
                "assignmentId": {
                    "type": "integer"
                },
                "completed": {
                    "type": "boolean"
                },
                "answer": {
                    "type": "string"
                },
                "score": {
                    "type": "number"
                },
                "feedback": {
                    "type": "string"
                },
                "attempts": {
                    "type": "integer"
                },
                "gradingMode": {
                    "type": "string"
                },
                "submittedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "completionDate": {
                    "type": "string",
                    "format": "date-time"
                },
                "assignment": {
                    "$ref": "#/definitions/model.Assignment"
                }
            }
        },
        "model.StudentKnowledgePoint": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "studentId": {
                    "type": "integer"
                },
                "knowledgePointId": {
                    "type": "integer"
                },
                "masteryLevel": {
                    "type": "number"
                },
                "lastInteraction": {
                    "type": "string",
                    "format": "date-time"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "knowledgePoint": {
                    "$ref": "#/definitions/model.KnowledgePoint"
                }
            }
        },
        "model.StudentResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "studentAssignmentId": {
                    "type": "integer"
                },
                "questionId": {
                    "type": "integer"
                },
                "answerText": {
                    "type": "string"
                },
                "selectedOptionId": {
                    "type": "integer"
                },
                "score": {
                    "type": "number"
                },
                "feedback": {
                    "type": "string"
                },
                "gradedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "gradedBy": {
                    "type": "integer"
                },
                "question": {
                    "$ref": "#/definitions/model.Question"
                }
            }
        },
        "model.User": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                },
                "disabled": {
                    "type": "boolean"
                },
                "lastLogin": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "service.CreateAssignmentRequest": {
            "type": "object",
            "properties": {
                "courseId": {
                    "type": "integer"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "dueDate": {
                    "type": "string",
                    "format": "date-time"
                },
                "totalPoints": {
                    "type": "number"
                },
                "questions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/service.QuestionInput"
                    }
                }
            }
        },
        "service.CreateCourseRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "teacherId": {
                    "type": "integer"
                }
            }
        },
        "service.KnowledgeEntryInput": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "content": {
                    "type": "string"
                },
                "category": {
                    "type": "string"
                },
                "tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "source": {
                    "type": "string"
                },
                "courseId": {
                    "type": "integer"
                }
            }
        },
        "service.KnowledgePointLink": {
            "type": "object",
            "properties": {
                "knowledgePointId": {
                    "type": "integer"
                },
                "weight": {
                    "type": "number"
                }
            }
        },
        "service.KnowledgePointRequest": {
            "type": "object",
            "properties": {
                "courseId": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "parentId": {
                    "type": "integer"
                }
            }
        },
        "service.KnowledgePointUpdate": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "parentId": {
                    "type": "integer"
                },
                "detachParent": {
                    "type": "boolean"
                }
            }
        },
        "service.OptionInput": {
            "type": "object",
            "properties": {
                "text": {
                    "type": "string"
                },
                "isCorrect": {
                    "type": "boolean"
                }
            }
        },
        "service.QuestionInput": {
            "type": "object",
            "properties": {
                "text": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "points": {
                    "type": "number"
                },
                "correctAnswer": {
                    "type": "string"
                },
                "options": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/service.OptionInput"
                    }
                }
            }
        },
        "service.RecomputeResult": {
            "type": "object",
            "properties": {
                "pairs": {
                    "type": "integer"
                },
                "students": {
                    "type": "integer"
                },
                "pruned": {
                    "type": "integer"
                },
                "duration": {
                    "type": "object"
                }
            }
        },
        "service.RecordActivityRequest": {
            "type": "object",
            "properties": {
                "knowledgePointId": {
                    "type": "integer"
                },
                "activityType": {
                    "type": "string"
                },
                "durationSeconds": {
                    "type": "integer"
                },
                "metadata": {
                    "type": "object"
                },
                "timestamp": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "service.RegisterRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                }
            }
        },
        "util.ListResponse": {
            "type": "object",
            "properties": {
                "list": {
                    "type": "object"
                },
                "total": {
                    "type": "integer"
                }
            }
        },
        "util.Response": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object"
                }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo 运行时可覆盖 Host 与 BasePath
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "EduAssistant 后端 API",
	Description:      "课程作业、评分与知识点掌握度服务。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
